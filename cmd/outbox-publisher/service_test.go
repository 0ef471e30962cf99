package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pumplink/pumplink-backend/pkg/config"
	"github.com/pumplink/pumplink-backend/pkg/db/models"
	"github.com/pumplink/pumplink-backend/pkg/enums"
	"github.com/pumplink/pumplink-backend/pkg/logger"
	"github.com/pumplink/pumplink-backend/pkg/outbox"
	"github.com/pumplink/pumplink-backend/pkg/outbox/registry"
)

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error {
	return nil
}

func (fakePubSub) Publisher(string) *gcppubsub.Publisher {
	return nil
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	events := f.events
	f.events = nil
	return events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminal(id uuid.UUID, err error, maxAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeResolver struct {
	err error
}

func (f fakeResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "custody-events"},
		Envelope:   outbox.PayloadEnvelope{EventID: uuid.NewString(), OccurredAt: time.Now()},
	}, nil
}

type fakePublisher struct {
	err error
}

func (f fakePublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	return fakeResult{err: f.err}
}

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

func testEvent(attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventOrderDelivered,
		AggregateType: "order",
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		CreatedAt:     time.Now(),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, resolver registryResolver, pub publisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		PubSub:     fakePubSub{},
		Repository: repo,
		Registry:   resolver,
		PublisherFactory: func(topic string) publisher {
			return pub
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{testEvent(0)}}
	svc := newTestService(t, repo, fakeResolver{}, fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(repo.published) != 1 {
		t.Fatalf("expected 1 published, got %d", len(repo.published))
	}
	if len(repo.failed) != 0 || len(repo.terminal) != 0 {
		t.Fatalf("unexpected failure marks: failed=%d terminal=%d", len(repo.failed), len(repo.terminal))
	}
}

func TestProcessBatchMarksTerminalOnUnresolvableEvent(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{testEvent(0)}}
	resolver := fakeResolver{err: registry.NewNonRetryableError(errors.New("unsupported event type"))}
	svc := newTestService(t, repo, resolver, fakePublisher{})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected 1 terminal mark, got %d", len(repo.terminal))
	}
	if len(repo.published) != 0 {
		t.Fatalf("expected no publishes, got %d", len(repo.published))
	}
}

func TestProcessBatchRetriesTransientPublishError(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{testEvent(0)}}
	svc := newTestService(t, repo, fakeResolver{}, fakePublisher{err: errors.New("deadline exceeded")})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected 1 failed mark, got %d", len(repo.failed))
	}
	if len(repo.terminal) != 0 {
		t.Fatalf("expected no terminal marks, got %d", len(repo.terminal))
	}
}

func TestProcessBatchStopsRetryingAtMaxAttempts(t *testing.T) {
	event := testEvent(defaultMaxAttempts - 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	svc := newTestService(t, repo, fakeResolver{}, fakePublisher{err: errors.New("deadline exceeded")})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark at retry ceiling, got %d", len(repo.terminal))
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	backoff := nextBackoff(base, base, maxBackoff)
	if backoff != time.Second {
		t.Fatalf("expected 1s got %v", backoff)
	}
	backoff = nextBackoff(20*time.Second, base, maxBackoff)
	if backoff != maxBackoff {
		t.Fatalf("expected cap %v got %v", maxBackoff, backoff)
	}
}
