package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/surgewatch/runmon/internal/testutil"
)

type fakeSubscriber struct {
	msgs chan *message.Message
}

func (f *fakeSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	return f.msgs, nil
}

func (f *fakeSubscriber) Close() error {
	close(f.msgs)
	return nil
}

func TestConsumer_ProcessesSequentiallyAndAcks(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := &fakeSubscriber{msgs: make(chan *message.Message, 4)}

	var mu sync.Mutex
	var seen []string
	inFlight := 0
	handler := func(_ context.Context, body []byte) error {
		mu.Lock()
		inFlight++
		require.Equal(t, 1, inFlight, "messages must not overlap")
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		seen = append(seen, string(body))
		inFlight--
		mu.Unlock()
		return nil
	}

	c := NewConsumer(sub, "status", handler, slog.Default())

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	first := message.NewMessage("1", []byte("one"))
	second := message.NewMessage("2", []byte("two"))
	sub.msgs <- first
	sub.msgs <- second

	testutil.WaitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, "both messages processed")

	require.NoError(t, sub.Close())
	require.NoError(t, <-done)

	assert.Equal(t, []string{"one", "two"}, seen)

	// Both messages were acked despite ordering.
	assertAcked(t, first)
	assertAcked(t, second)
}

func TestConsumer_AcksFailedMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	sub := &fakeSubscriber{msgs: make(chan *message.Message, 1)}
	handler := func(context.Context, []byte) error { return errors.New("boom") }

	c := NewConsumer(sub, "status", handler, slog.Default())

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	msg := message.NewMessage("1", []byte("{}"))
	sub.msgs <- msg

	assertAcked(t, msg)
	require.NoError(t, sub.Close())
	require.NoError(t, <-done)
}

func assertAcked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Acked():
	case <-time.After(time.Second):
		t.Fatal("message was not acked")
	}
}
