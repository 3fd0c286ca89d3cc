package grpc

import (
	"golang.org/x/time/rate"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
)

const MetadataClientID = "x-client-id"

// DocstoreServer serves a remote.Store over gRPC.
type DocstoreServer struct {
	Store            remote.Store
	RateLimiterStore *safety.RateLimiterStore
}

func (s *DocstoreServer) GetLimiter(clientID string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	}
	return s.RateLimiterStore.GetLimiter(clientID)
}

func (s *DocstoreServer) CheckClientLimiter(clientID string) bool {
	limiter := s.GetLimiter(clientID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}
