package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"

	"github.com/surgewatch/runmon/internal/metrics"
)

// Relay re-publishes raw message bodies to a downstream queue. It is
// gated by an enable flag and a file-presence kill switch, and guarded
// by a circuit breaker so a dead downstream broker cannot stall the
// consumers.
type Relay struct {
	publisher message.Publisher
	queue     string
	enabled   bool
	killFile  string
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// NewRelay creates a relay targeting queue. killFile may be empty.
func NewRelay(pub message.Publisher, queue string, enabled bool, killFile string, logger *slog.Logger) *Relay {
	return &Relay{
		publisher: pub,
		queue:     queue,
		enabled:   enabled,
		killFile:  killFile,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "relay",
			Timeout: 30 * time.Second,
		}),
		logger: logger,
	}
}

// Publish relays body to the downstream queue. force bypasses the
// enable flag but not the kill switch. A skipped relay is not an error.
func (r *Relay) Publish(_ context.Context, body []byte, force bool) error {
	if !r.enabled && !force {
		r.logger.Debug("relay disabled, skipping", "queue", r.queue)
		return nil
	}
	if r.killed() {
		r.logger.Warn("relay kill switch present, skipping", "queue", r.queue, "file", r.killFile)
		return nil
	}

	metrics.RelaysAttempted.Add(1)
	_, err := r.breaker.Execute(func() (interface{}, error) {
		msg := message.NewMessage(watermill.NewUUID(), body)
		return nil, r.publisher.Publish(r.queue, msg)
	})
	if err != nil {
		metrics.RelaysFailed.Add(1)
		return fmt.Errorf("relaying to %q: %w", r.queue, err)
	}
	return nil
}

func (r *Relay) killed() bool {
	if r.killFile == "" {
		return false
	}
	_, err := os.Stat(r.killFile)
	return err == nil
}
