package config

import "time"

// RelaySettings tunes the outbox relay loop. The poll interval is not
// correctness-critical; delivery downstream is already at-least-once.
type RelaySettings struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"required"`
	BatchSize       int           `mapstructure:"batch_size" validate:"required,gt=0"`
	MaxRetries      int           `mapstructure:"max_retries" validate:"gte=0"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
}
