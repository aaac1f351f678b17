package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/outbox"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeBroker struct{ fakePinger }

func (fakeBroker) Receive(ctx context.Context, _ outbox.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeDispatcher struct {
	err    error
	source outbox.Source
}

func (f *fakeDispatcher) Run(_ context.Context, source outbox.Source) error {
	f.source = source
	return f.err
}

func newWorkerService(t *testing.T, redisErr error, dispatcher *fakeDispatcher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{Eventing: config.EventingConfig{Broker: "kafka"}},
		Logger:     logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
		DB:         fakePinger{},
		Redis:      fakePinger{err: redisErr},
		Broker:     fakeBroker{},
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRunStopsOnReadinessFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := newWorkerService(t, errors.New("redis down"), dispatcher)

	err := svc.Run(context.Background())
	if err == nil {
		t.Fatalf("expected readiness error")
	}
	if dispatcher.source != nil {
		t.Fatalf("dispatcher should not start when a dependency is down")
	}
}

func TestRunReturnsDispatcherError(t *testing.T) {
	boom := errors.New("subscription deleted")
	dispatcher := &fakeDispatcher{err: boom}
	svc := newWorkerService(t, nil, dispatcher)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Run(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected dispatcher error, got %v", err)
	}
	if dispatcher.source == nil {
		t.Fatalf("dispatcher should consume the broker source")
	}
}

func TestNewServiceRequiresDispatcher(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config: &config.Config{},
		Logger: logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
		DB:     fakePinger{},
		Redis:  fakePinger{},
		Broker: fakeBroker{},
	})
	if err == nil {
		t.Fatalf("expected error without dispatcher")
	}
}
