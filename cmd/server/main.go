package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/jobs"
	"github.com/atlas-fitness/atlas-api/internal/queue"
	"github.com/atlas-fitness/atlas-api/internal/router"
	"github.com/atlas-fitness/atlas-api/internal/validators"
	"github.com/atlas-fitness/atlas-api/pkg/config"
	"github.com/atlas-fitness/atlas-api/pkg/firebase"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.SetDebug(!cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	// Initialize Firebase. Only Firebase auth mode requires it.
	var fb *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		fb, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			if cfg.AuthMode == config.AuthModeFirebase {
				return err
			}
			log.Warn("Firebase disabled: %v", err)
			fb = nil
		} else {
			log.Info("Firebase app, auth and messaging clients initialized.")
		}
	}

	var mq *queue.Client
	if cfg.RabbitMQURL != "" {
		if mq, err = queue.NewRabbitMQClient(cfg.RabbitMQURL, log); err != nil {
			return err
		}
		defer mq.Close()
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log)

	// Setup routes and dependencies
	svc, err := router.SetupRoutes(e, router.Options{
		Config:   cfg,
		DB:       db,
		Firebase: fb,
		Queue:    mq,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer svc.Hub.Close()

	if db.Redis != nil {
		stopListen, err := svc.Hub.Listen(ctx, db.Redis)
		if err != nil {
			return err
		}
		defer stopListen()
	}

	if mq != nil {
		go func() {
			if err := mq.Consume(ctx, svc.Batcher.Queue); err != nil && ctx.Err() == nil {
				log.Error("push event consumer stopped: %v", err)
				stop()
			}
		}()
	}

	scheduler := cron.New()
	if err := jobs.InitCronJobs(scheduler, cfg.PushSweepSchedule, svc.Sweeper, log); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
