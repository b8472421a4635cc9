package config

// DbSettings holds configuration for the durable store backing a service.
type DbSettings struct {
	Type   string `mapstructure:"type" validate:"required,oneof=postgres spanner mongo"`
	DSN    string `mapstructure:"dsn"`
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"db_name"`
}
