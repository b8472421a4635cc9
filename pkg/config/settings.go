package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Settings struct {
	Database      DbSettings       `mapstructure:"database"`
	Broker        BrokerSettings   `mapstructure:"broker"`
	Relay         RelaySettings    `mapstructure:"relay"`
	Consumer      ConsumerSettings `mapstructure:"consumer"`
	Saga          SagaSettings     `mapstructure:"saga"`
	Session       SessionSettings  `mapstructure:"session"`
	Auth          AuthSettings     `mapstructure:"auth"`
	Catalog       CatalogSettings  `mapstructure:"catalog"`
	HTTPAddr      string           `mapstructure:"http_addr"`
	Observability Observability    `mapstructure:"observability"`
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// LoadFromFile reads <service>.yaml from filePath, merges an optional
// <service>.<ENVIRONMENT>.yaml overlay and finally environment variables.
func LoadFromFile(filePath, service string) (*Settings, error) {

	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	cfg := &Settings{}
	viper.SetConfigType("yaml")
	viper.SetConfigName(service)
	viper.AddConfigPath(filePath)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found or read error: %v (will rely on env)", err)
	}

	err := mergeConfig(filePath, service+"."+env)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error merging %s config: %s\n", env, err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load from env: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SHOPSAGA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like SHOPSAGA_DATABASE_TYPE

	// Bind environment variables explicitly to ensure they map correctly
	viper.BindEnv("database.type")
	viper.BindEnv("database.dsn")
	viper.BindEnv("database.uri")
	viper.BindEnv("database.db_name")
	viper.BindEnv("broker.type")
	viper.BindEnv("broker.url")
	viper.BindEnv("broker.exchange")
	viper.BindEnv("broker.pool_size")
	viper.BindEnv("broker.project_id")
	viper.BindEnv("relay.poll_interval")
	viper.BindEnv("relay.batch_size")
	viper.BindEnv("relay.max_retries")
	viper.BindEnv("relay.dead_letter_topic")
	viper.BindEnv("consumer.queue")
	viper.BindEnv("consumer.bindings")
	viper.BindEnv("consumer.max_redeliveries")
	viper.BindEnv("consumer.dead_letter_topic")
	viper.BindEnv("saga.payment_url")
	viper.BindEnv("saga.notification_url")
	viper.BindEnv("saga.call_timeout")
	viper.BindEnv("saga.payment_failure_mode")
	viper.BindEnv("session.backend")
	viper.BindEnv("session.redis_url")
	viper.BindEnv("session.ttl")
	viper.BindEnv("auth.jwt_secret")
	viper.BindEnv("auth.token_ttl")
	viper.BindEnv("catalog.redis_url")
	viper.BindEnv("catalog.cache_ttl")
	viper.BindEnv("http_addr")
	viper.BindEnv("observability.service_name")
	viper.BindEnv("observability.tracing_url")
	viper.BindEnv("observability.metrics_url")

	if err := viper.Unmarshal(&c); err != nil {
		return err
	}
	return nil
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	err := viper.MergeInConfig()
	if err != nil {
		return err
	}
	return nil
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
