package types

import "time"

// Alert is a notification about a failed or suspicious message.
type Alert struct {
	Level     AlertLevel `json:"level"`
	Queue     string     `json:"queue,omitempty"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// AlertConfig describes one alert sink.
type AlertConfig struct {
	Type    AlertType `json:"type" yaml:"type"`
	URL     string    `json:"url,omitempty" yaml:"url,omitempty"`
	Channel string    `json:"channel,omitempty" yaml:"channel,omitempty"`
	Path    string    `json:"path,omitempty" yaml:"path,omitempty"`
}
