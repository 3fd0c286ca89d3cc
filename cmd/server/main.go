package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/config"
	"liyu1981.xyz/sos-safety-service/pkg/db"
	sosGrpc "liyu1981.xyz/sos-safety-service/pkg/grpc"
	sosHttp "liyu1981.xyz/sos-safety-service/pkg/http"
	"liyu1981.xyz/sos-safety-service/pkg/location"
	"liyu1981.xyz/sos-safety-service/pkg/notify"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
	"liyu1981.xyz/sos-safety-service/pkg/safety"
	"liyu1981.xyz/sos-safety-service/pkg/sos"
)

const pushQueue = "sos.agent.push"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration, copy .env.example to .env first if in development: %v", err)
	}

	var dbInstance *db.DB
	switch cfg.DBType {
	case "file":
		dbInstance, err = db.Open(db.UseSqliteDialector())
	case "memory":
		dbInstance, err = db.Open(db.UseMemorySqliteDialector())
	}
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer dbInstance.Close()

	logger := common.GetLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	safetyCore := safety.New(dbInstance)
	if err := safetyCore.Contact.AddDefaultEmergencyContacts(ctx, cfg.EmergencyNumber); err != nil {
		log.Fatalf("failed to seed emergency contacts: %v", err)
	}

	feed := location.NewFeedSource(cfg.LocationMaxAge, nil)
	var geocoder location.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = location.NewCachedGeocoder(location.NewNominatimGeocoder(cfg.GeocoderURL), time.Hour)
	}
	provider := location.NewProvider(feed, location.Options{Geocoder: geocoder, History: safetyCore.History})

	var broker *notify.Broker
	if cfg.AMQPURL != "" {
		if broker, err = notify.Dial(ctx, cfg.AMQPURL, 5); err != nil {
			log.Fatalf("failed to connect to broker: %v", err)
		}
		defer broker.Close()
	}

	var store remote.Store
	if cfg.DocstoreAddr != "" {
		client, err := sosGrpc.Dial(cfg.DocstoreAddr, cfg.UserID)
		if err != nil {
			log.Fatalf("failed to dial docstore: %v", err)
		}
		defer client.Close()
		store = client
		logger.Info("Mirroring SOS events to docstore", zap.String("addr", cfg.DocstoreAddr))
	} else {
		store = remote.NewMemoryStore(nil)
		logger.Warn("No docstore configured, SOS events are mirrored in memory only")
	}

	var publisher remote.Publisher = remote.LogPublisher{}
	var sender notify.Sender = notify.LogSender{}
	if broker != nil {
		amqpSender := notify.NewAMQPSender(broker)
		publisher, sender = amqpSender, amqpSender
	}
	sink := remote.NewDocumentSink(store, cfg.UserID, publisher)

	dispatcher := notify.NewDispatcher(sender, notify.DispatcherOpts{
		UserName:      cfg.UserName,
		MaxRecipients: cfg.MaxNotified,
		Limiter:       safety.NewRateLimiterStore(rate.Every(time.Minute), 3),
	})

	coordinator := sos.New(safetyCore, provider, sink, dispatcher, sos.Options{Countdown: cfg.CountdownSeconds})
	go func() {
		if err := coordinator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("SOS coordinator failed: %v", err)
		}
	}()

	retention := safety.NewRetention(safetyCore, cfg.RetentionDays, nil)
	if err := retention.Start(cfg.RetentionSchedule); err != nil {
		log.Fatalf("failed to schedule retention: %v", err)
	}
	defer retention.Stop()

	rs := &sosHttp.RestfulServer{
		Server:           gin.Default(),
		Safety:           safetyCore,
		Coordinator:      coordinator,
		Location:         provider,
		Feed:             feed,
		Sink:             sink,
		Community:        remote.NewCommunityAlertSink(store, cfg.UserID, publisher, nil),
		Shares:           remote.NewLocationShareSink(store, cfg.UserID, publisher, nil),
		Users:            remote.NewUserDirectory(store),
		Hub:           sosHttp.NewHub(),
		Retention:        retention,
		RateLimiterStore: safety.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		UserID:           cfg.UserID,
		Tracking: location.TrackingOptions{
			Interval:        cfg.LocationInterval,
			Fastest:         cfg.LocationFastest,
			MinDisplacement: cfg.LocationDisplacement,
		},
	}
	rs.Push = notify.NewPushHandler(rs.Hub)
	rs.Setup()
	go rs.StreamStates(ctx)

	if broker != nil {
		if err := broker.ConsumePush(ctx, pushQueue, rs.Push); err != nil {
			log.Fatalf("failed to consume push messages: %v", err)
		}
	}

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)),
		zap.Int("countdown", cfg.CountdownSeconds),
		zap.String("retention_schedule", cfg.RetentionSchedule))

	srv := &http.Server{Addr: cfg.HTTPHostPort, Handler: rs.Server}
	go func() {
		<-ctx.Done()
		rs.Location.StopTracking()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting HTTP server on: " + cfg.HTTPHostPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server failed to serve: %v", err)
	}
}
