package config

// DBConfig contains PostgreSQL connection configuration for the profile
// store.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"storefront"`
	Password string `env:"PASSWORD" envDefault:"storefront"`
	Name     string `env:"NAME"     envDefault:"storefront"`
	SSLMode  string `env:"SSLMODE"  envDefault:"disable"`

	// EnsureSchemaOnStart creates the profiles table when absent.
	EnsureSchemaOnStart bool `env:"ENSURE_SCHEMA_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis connection configuration for the persisted
// identity cache.
type RedisConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`
}
