package config

// ConsumerSettings configures the idempotent consumer of a service: the
// durable named queue it reads from, the routing-key patterns bound to it and
// the redelivery budget before a message is dead-lettered.
type ConsumerSettings struct {
	Queue           string   `mapstructure:"queue"`
	Bindings        []string `mapstructure:"bindings"`
	MaxRedeliveries int      `mapstructure:"max_redeliveries"`
	DeadLetterTopic string   `mapstructure:"dead_letter_topic"`
}
