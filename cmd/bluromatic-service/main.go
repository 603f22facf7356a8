package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/DMarby/bluromatic/internal/cmd"
	"github.com/DMarby/bluromatic/internal/health"
	"github.com/DMarby/bluromatic/internal/hmac"
	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/metrics"
	"github.com/DMarby/bluromatic/internal/queue"
	"github.com/DMarby/bluromatic/internal/storage/resource"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/DMarby/bluromatic/internal/work"
	"github.com/DMarby/bluromatic/internal/workapi"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", "127.0.0.1:8082", "metrics listen address")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
	tracingOTLP   = flag.Bool("tracing", false, "export traces over OTLP/gRPC, configured through the OTEL_EXPORTER_OTLP_* environment variables")

	// Work
	workers      = flag.Int("workers", 3, "amount of units of work to run at the same time")
	workDelay    = flag.Duration("work-delay", 0, "time to wait before starting every unit of work")
	blurSource   = flag.String("blur-source", "", "image reference to always blur, ignoring the input, such as "+resource.Sample)
	galleryDir   = flag.String("gallery-dir", "gallery", "directory in the storage that saved images are written to")
	galleryTitle = flag.String("gallery-title", work.DefaultTitle, "title that saved images are named after")

	// API
	handlerTimeout = flag.Duration("handler-timeout", cmd.HandlerTimeout, "time after which a request is canceled")
	allowedOrigins = flag.String("cors-allowed-origins", "", "comma separated list of origins allowed to call the api, all if empty")

	// HMAC
	hmacKey = flag.String("hmac-key", "", "hmac key to use for authenticating the work scheduler, disabled if empty")

	// Backends
	backendFlags = cmd.RegisterBackendFlags(cmd.BackendFlags{
		Storage:         "file",
		StorageFilePath: "./data",
		Cache:           "memory",
		Notify:          "log",
	})
)

func main() {
	// Parse environment variables
	envy.Parse("BLUROMATIC")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize tracing
	tracer := tracing.NewNoop(log, "bluromatic-service")
	if *tracingOTLP {
		var err error
		tracer, err = tracing.New(shutdownCtx, log, "bluromatic-service")
		if err != nil {
			log.Fatalf("error initializing tracing: %s", err)
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tracer.Shutdown(ctx)
	}()

	// Initialize the storage, cache, and notifications
	backends, err := cmd.SetupBackends(shutdownCtx, log, tracer, backendFlags)
	if err != nil {
		log.Fatalf("error initializing backends: %s", err)
	}
	defer backends.Shutdown()

	// Initialize the worker queue
	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()

	workQueue := queue.New(queueCtx, *workers, work.Process)
	go workQueue.Run()

	// Initialize the units of work
	base := work.Base{
		Log:      log,
		Tracer:   tracer,
		Queue:    workQueue,
		Notifier: backends.Notifier,
		Delay:    *workDelay,
	}

	blur := &work.BlurWorker{Base: base, Resolver: backends.Resolver, Output: backends.Bucket, Source: *blurSource}
	save := &work.SaveWorker{Base: base, Resolver: backends.Resolver, Gallery: backends.Bucket, Dir: *galleryDir, Title: *galleryTitle}
	cleanup := &work.CleanupWorker{Base: base, Output: backends.Bucket}

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:        checkerCtx,
		Storage:    backends.Bucket,
		StorageDir: work.OutputDir,
		Resolver:   backends.Resolver,
		SampleRef:  resource.Sample,
		Cache:      backends.Cache,
		Log:        log,
	}
	go checker.Run()

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, checker, *metricsListen)

	// Start and listen on http
	api := &workapi.API{
		Workers:        []work.Worker{blur, save, cleanup},
		Chain:          work.NewChain(blur, save, cleanup),
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: *handlerTimeout,
		HMAC: &hmac.HMAC{
			Key: []byte(*hmacKey),
		},
		AllowedOrigins: splitList(*allowedOrigins),
	}
	server := cmd.NewServer(log, *listen, api.Router(), *handlerTimeout)

	log.Infof("http server listening on %s, running %d workers", *listen, workQueue.Workers())

	// Serve until shutdown or error, letting running work finish
	err = cmd.Serve(shutdownCtx, log, server)
	log.Infof("shutting down: %s", err)
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}

	return list
}
