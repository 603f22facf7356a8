package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/DMarby/bluromatic/internal/blur"
	"github.com/DMarby/bluromatic/internal/cmd"
	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/queue"
	"github.com/DMarby/bluromatic/internal/storage/resource"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/DMarby/bluromatic/internal/work"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Comandline flags
var (
	loglevel   = zap.LevelFlag("log-level", zap.WarnLevel, "log level (default \"warn\") (debug, info, warn, error, dpanic, panic, fatal)")
	image      = flag.String("image", resource.Sample, "image reference or absolute path of the image to blur")
	blurLevel  = flag.Int("blur-level", blur.DefaultLevel, fmt.Sprintf("how much to blur the image (%d-%d)", blur.MinLevel, blur.MaxLevel))
	title      = flag.String("title", work.DefaultTitle, "title that the saved image is named after")
	galleryDir = flag.String("gallery-dir", "gallery", "directory in the storage that the image is saved to")

	backendFlags = cmd.RegisterBackendFlags(cmd.BackendFlags{
		Storage:         "file",
		StorageFilePath: ".",
		ContentFileRoot: "/",
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
	maxprocs.Set(maxprocs.Logger(log.Debugf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the chain on interrupt, the cleanup still runs
	go func() {
		if err := cmd.WaitForInterrupt(ctx); !errors.Is(err, cmd.ErrCanceled) {
			log.Infof("canceling: %s", err)
		}
		cancel()
	}()

	tracer := tracing.NewNoop(log, "bluromatic")

	backends, err := cmd.SetupBackends(ctx, log, tracer, backendFlags)
	if err != nil {
		log.Fatalf("error initializing backends: %s", err)
	}
	defer backends.Shutdown()

	workQueue := queue.New(ctx, 1, work.Process)
	go workQueue.Run()

	base := work.Base{
		Log:      log,
		Tracer:   tracer,
		Queue:    workQueue,
		Notifier: backends.Notifier,
	}

	// The queue is stopped when ctx is canceled, so the cleanup runs inline
	cleanupBase := base
	cleanupBase.Queue = nil

	chain := work.NewChain(
		&work.BlurWorker{Base: base, Resolver: backends.Resolver, Output: backends.Bucket},
		&work.SaveWorker{Base: base, Resolver: backends.Resolver, Gallery: backends.Bucket, Dir: *galleryDir, Title: *title},
		&work.CleanupWorker{Base: cleanupBase, Output: backends.Bucket},
	)

	result := chain.DoWork(ctx, work.Data{
		work.KeyImageURI:  *image,
		work.KeyBlurLevel: *blurLevel,
	})
	if !result.Succeeded() {
		log.Sync()
		fmt.Fprintln(os.Stderr, "failed to blur the image")
		os.Exit(1)
	}

	output, _ := result.OutputData().String(work.KeyImageURI)
	fmt.Println(output)
}
