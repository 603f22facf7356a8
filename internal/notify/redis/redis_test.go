//go:build integration
// +build integration

package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/notify"
	"github.com/DMarby/bluromatic/internal/notify/redis"
	"github.com/DMarby/bluromatic/internal/tracing/test"
	"github.com/mediocregopher/radix/v4"
	"go.uber.org/zap"
)

const address = "127.0.0.1:6380"

func TestNotifier(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := logger.New(zap.ErrorLevel)
	defer log.Sync()

	notifier, err := redis.New(ctx, test.Tracer(log), address, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer notifier.Shutdown()

	conn, err := (radix.PubSubConfig{}).New(ctx, "tcp", address)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.Subscribe(ctx, redis.Channel); err != nil {
		t.Fatal(err)
	}

	status := notify.Status{Worker: "blur", Message: "Blurring image", Time: time.Now().UTC().Truncate(time.Second)}
	if err := notifier.Notify(ctx, status); err != nil {
		t.Fatal(err)
	}

	msg, err := conn.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var received notify.Status
	if err := json.Unmarshal(msg.Message, &received); err != nil {
		t.Fatal(err)
	}

	if received.Worker != status.Worker || received.Message != status.Message || !received.Time.Equal(status.Time) {
		t.Errorf("wrong status %+v", received)
	}
}
