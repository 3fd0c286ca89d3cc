package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/metrics"
	"liyu1981.xyz/sos-safety-service/pkg/notify"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
	"liyu1981.xyz/sos-safety-service/pkg/sos"
)

const HeaderClientID = "X-Client-ID"

type RestfulServer struct {
	Server      *gin.Engine
	Safety      *safety.Safety
	Coordinator *sos.Coordinator
	Location    *location.Provider
	Feed        *location.FeedSource
	Sink        remote.EventSink
	Community   *remote.CommunityAlertSink
	Shares      *remote.LocationShareSink
	Users       *remote.UserDirectory
	Push        *notify.PushHandler
	Hub         *Hub
	Retention   *safety.Retention

	RateLimiterStore *safety.RateLimiterStore

	UserID   string
	Tracking location.TrackingOptions
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRestfulServer)
}

func (rs *RestfulServer) GetLimiter(clientID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(clientID)
	}
}

func (rs *RestfulServer) CheckClientLimiter(clientID string) bool {
	limiter := rs.GetLimiter(clientID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(clientID string, clientRate float64, clientBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(clientID, rate.Limit(clientRate), clientBurst)
}

func clientID(c *gin.Context) string {
	if id := c.GetHeader(HeaderClientID); id != "" {
		return id
	}
	return c.ClientIP()
}

// limited rejects the request with 429 once the caller's limiter runs dry.
func (rs *RestfulServer) limited(c *gin.Context) {
	if !rs.CheckClientLimiter(clientID(c)) {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	c.Next()
}

// StreamStates forwards coordinator state changes to every websocket
// client until ctx is done.
func (rs *RestfulServer) StreamStates(ctx context.Context) {
	for state := range rs.Coordinator.Subscribe(ctx) {
		rs.Hub.Broadcast(KindSosState, state)
	}
}

func (rs *RestfulServer) Setup() {
	if rs.Hub == nil {
		rs.Hub = NewHub()
	}

	rs.Server.Use(Metrics())

	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(metrics.Handler()))
	rs.Server.POST("/clients/:client_id/limiter", rs.PostLimiter)

	contacts := rs.Server.Group("/contacts")
	{
		contacts.GET("", rs.GetContacts)
		contacts.POST("", rs.PostContact)
		contacts.PUT("/:id", rs.PutContact)
		contacts.DELETE("/:id", rs.DeleteContact)
		contacts.POST("/:id/primary", rs.PostPrimaryContact)
	}

	sosGroup := rs.Server.Group("/sos")
	{
		sosGroup.POST("/trigger", rs.limited, rs.PostTrigger)
		sosGroup.POST("/cancel", rs.limited, rs.PostCancel)
		sosGroup.POST("/resolve", rs.limited, rs.PostResolve)
		sosGroup.POST("/retry", rs.limited, rs.PostRetry)
		sosGroup.GET("/state", rs.GetState)
		sosGroup.GET("/stream", rs.GetStream)
	}

	events := rs.Server.Group("/events")
	{
		events.GET("", rs.GetEvents)
		events.GET("/latest", rs.GetLatestEvent)
		events.GET("/remote/stream", rs.GetRemoteStream)
		events.GET("/:id", rs.GetEvent)
		events.PUT("/:id/notes", rs.PutEventNotes)
	}

	loc := rs.Server.Group("/location")
	{
		loc.POST("", rs.PostLocation)
		loc.POST("/permission", rs.PostPermission)
		loc.GET("/current", rs.GetCurrentLocation)
		loc.GET("/history", rs.GetLocationHistory)
		loc.POST("/tracking/start", rs.PostStartTracking)
		loc.POST("/tracking/stop", rs.PostStopTracking)
	}

	community := rs.Server.Group("/community/alerts")
	{
		community.POST("", rs.limited, rs.PostCommunityAlert)
		community.GET("/nearby", rs.GetNearbyAlerts)
		community.POST("/:alert_id/resolve", rs.PostResolveAlert)
	}

	shares := rs.Server.Group("/shares")
	{
		shares.POST("", rs.limited, rs.PostShare)
		shares.GET("", rs.GetSharedWithMe)
		shares.DELETE("/:share_id", rs.DeleteShare)
	}

	profile := rs.Server.Group("/profile")
	{
		profile.GET("", rs.GetProfile)
		profile.PUT("", rs.PutProfile)
		profile.PUT("/fcm-token", rs.PutFcmToken)
	}
	rs.Server.POST("/invitations", rs.limited, rs.PostInvitation)

	rs.Server.POST("/push", rs.PostPush)
	rs.Server.POST("/maintenance/retention", rs.PostRetention)
}
