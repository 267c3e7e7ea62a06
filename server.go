package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/models"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const migrationLockKey = "lock:migrations"

// readiness serves 503 until the real router is installed.
type readiness struct {
	handler atomic.Pointer[http.Handler]
}

func (rd *readiness) set(h http.Handler) {
	rd.handler.Store(&h)
}

func (rd *readiness) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h := rd.handler.Load()
	if h == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}

func main() {
	settings := config.LoadSettings()
	logger := config.NewLogger(settings.LogLevel)

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening immediately so the startup probe passes while dependencies connect.
	gate := &readiness{}
	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           gate,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	db := config.ConnectDatabaseWithRetry(settings)
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	rdb := config.ConnectRedisWithRetry(sigCtx, settings)
	defer func() {
		_ = rdb.Close()
	}()

	// AutoMigrate can block tables; allow running it as a separate job instead.
	if !settings.SkipMigrations {
		if err := migrate(sigCtx, db, rdb); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	photos, err := newPhotoStore(sigCtx, settings)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "storage"}).Fatal(err.Error())
	}
	publisher, closePublisher, err := newPublisher(sigCtx, settings, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "publisher"}).Fatal(err.Error())
	}
	defer closePublisher()

	tokens := utils.NewTokenIssuer(settings.ApiSecret, settings.TokenLifespan)
	access := workflow.NewAccessPolicy(db, rdb, settings.RightsCacheTTL, logger)
	app := &application{
		settings:     settings,
		logger:       logger,
		redis:        rdb,
		tokens:       tokens,
		access:       access,
		users:        workflow.NewUsers(db, logger, access, tokens),
		catalog:      workflow.NewCatalog(db, logger, settings.Policy, photos),
		production:   workflow.NewProductionScaler(db, logger, settings.Policy),
		reservations: workflow.NewReservationLifecycle(db, logger, settings.Policy),
		outbox:       workflow.NewOutboxOps(db, logger),
		uploadDir:    localUploadDir(settings),
	}
	gate.set(app.routes())

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger, publisher).Run(dispatcherCtx)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", settings.Port)
	logger.Info("server started")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// migrate runs AutoMigrate and the rights seed under a redis lock so only one instance does it at a time.
func migrate(ctx context.Context, db *gorm.DB, rdb *config.Redis) error {
	return rdb.WithLock(ctx, migrationLockKey, time.Minute, func() error {
		if err := models.MigrateTable(db); err != nil {
			return fmt.Errorf("migrate tables: %w", err)
		}
		if err := models.SeedRights(db); err != nil {
			return fmt.Errorf("seed rights: %w", err)
		}
		return nil
	})
}

func newPhotoStore(ctx context.Context, settings config.Settings) (utils.PhotoStore, error) {
	switch settings.StorageProvider {
	case config.StorageProviderGCS:
		client, err := utils.NewGCSClient(ctx, settings.GCSCredentialsJSON)
		if err != nil {
			return nil, err
		}
		store, err := utils.NewGCSPhotoStore(client, settings.GCSBucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageProviderLocal, "":
		return utils.NewLocalPhotoStore(settings.UploadDir, uploadsRoute), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_PROVIDER %q", settings.StorageProvider)
	}
}

func localUploadDir(settings config.Settings) string {
	if settings.StorageProvider == config.StorageProviderGCS {
		return ""
	}
	return settings.UploadDir
}

// newPublisher picks the outbox publisher. The returned close func is always safe to call.
func newPublisher(ctx context.Context, settings config.Settings, logger *logrus.Logger) (workflow.Publisher, func(), error) {
	switch settings.EventPublisher {
	case config.PublisherPubSub:
		client, err := config.NewPubSubClient(ctx, settings)
		if err != nil {
			return nil, nil, err
		}
		topic, err := config.CreateTopicIfNotExists(ctx, client, settings.PubSubTopic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return workflow.NewPubSubPublisher(topic), func() {
			topic.Stop()
			_ = client.Close()
		}, nil
	case config.PublisherKafka:
		writer, err := config.NewKafkaWriter(settings)
		if err != nil {
			return nil, nil, err
		}
		return &workflow.KafkaPublisher{Writer: writer}, func() { _ = writer.Close() }, nil
	case config.PublisherLog, "":
		return &workflow.LogPublisher{Logger: logger}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown EVENT_PUBLISHER %q", settings.EventPublisher)
	}
}
