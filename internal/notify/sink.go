package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sink is the fire-and-forget entry point used after a ledger mutation commits.
type Sink struct {
	publisher Publisher
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewSink wraps publisher. A nil publisher drops every event.
func NewSink(publisher Publisher, log *zap.SugaredLogger) *Sink {
	return &Sink{publisher: publisher, log: log, now: time.Now}
}

// Notify publishes one event. It never fails and never panics.
func (s *Sink) Notify(ctx context.Context, walletID string, kind EventKind) {
	if s == nil || s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("notification publisher panicked", "wallet_id", walletID, "kind", kind, "panic", r)
		}
	}()

	event := Event{WalletID: walletID, Kind: kind, OccurredAt: s.now().UTC()}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warnw("failed to publish wallet event", "wallet_id", walletID, "kind", kind, "error", err)
	}
}

// Close releases the publisher.
func (s *Sink) Close() error {
	if s == nil || s.publisher == nil {
		return nil
	}
	return s.publisher.Close()
}

// Open builds a Sink for the configured transport. An empty url, or a broker
// that cannot be reached, falls back to logging events.
func Open(url, exchange string, log *zap.SugaredLogger) *Sink {
	if url == "" {
		log.Info("AMQP disabled, wallet events will be logged only")
		return NewSink(NewLogPublisher(log), log)
	}
	publisher, err := NewAMQPPublisher(url, exchange)
	if err != nil {
		log.Warnw("failed to connect to AMQP broker, wallet events will be logged only", "error", err)
		return NewSink(NewLogPublisher(log), log)
	}
	log.Infow("publishing wallet events", "exchange", exchange)
	return NewSink(publisher, log)
}
