package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/surgewatch/runmon/pkg/types"
)

const slackTimeout = 10 * time.Second

// SlackSink posts alerts to a Slack incoming webhook.
type SlackSink struct {
	url     string
	channel string
	client  *http.Client
}

// NewSlackSink creates a new Slack alert sink.
func NewSlackSink(url, channel string) *SlackSink {
	return &SlackSink{
		url:     url,
		channel: channel,
		client: &http.Client{
			Timeout: slackTimeout,
		},
	}
}

// Name returns the sink identifier.
func (s *SlackSink) Name() string { return "slack" }

type slackPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// Send posts the alert text to the configured webhook URL.
func (s *SlackSink) Send(ctx context.Context, alert types.Alert) error {
	text := fmt.Sprintf("[%s] %s", alert.Level, alert.Message)
	if alert.Queue != "" {
		text = fmt.Sprintf("[%s] [%s] %s", alert.Level, alert.Queue, alert.Message)
	}

	data, err := json.Marshal(slackPayload{Channel: s.channel, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack POST failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}
