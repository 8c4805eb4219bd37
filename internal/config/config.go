package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

const (
	DATABASE_DRIVER_MEMORY   = "memory"
	DATABASE_DRIVER_POSTGRES = "postgres"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // memory or postgres
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration.
// Event publishing is disabled when URL is empty.
type NATSConfig struct {
	URL             string        `mapstructure:"url"`
	StreamName      string        `mapstructure:"stream_name"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName  string        `mapstructure:"connection_name"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
}

// EmitterConfig holds the event emitter configuration
type EmitterConfig struct {
	BatchSize            int           `mapstructure:"batch_size"`
	QueueSize            int           `mapstructure:"queue_size"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxElapsedTime  time.Duration `mapstructure:"retry_max_elapsed_time"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	ReadTimeout        int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout       int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout        int      `mapstructure:"idle_timeout"`  // in seconds
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string `mapstructure:"jwt_public_key"`
}

// RateLimitConfig holds the API request rate limiter configuration.
// Limits are shared across replicas through Redis when RedisAddr is set.
type RateLimitConfig struct {
	Enabled                 bool          `mapstructure:"enabled"`
	RequestsPerSecond       int           `mapstructure:"requests_per_second"`
	Burst                   int           `mapstructure:"burst"`
	RedisAddr               string        `mapstructure:"redis_addr"`
	RedisPassword           string        `mapstructure:"redis_password"`
	RedisDB                 int           `mapstructure:"redis_db"`
	RedisKeyPrefix          string        `mapstructure:"redis_key_prefix"`
	EnableLocalFallback     bool          `mapstructure:"enable_local_fallback"`
	LocalFallbackMultiplier float64       `mapstructure:"local_fallback_multiplier"` // share of the rate each replica allows while Redis is down
	RedisRecheckInterval    time.Duration `mapstructure:"redis_recheck_interval"`
}

// WebhookEndpointConfig is one webhook receiver
type WebhookEndpointConfig struct {
	URL    string   `mapstructure:"url"`
	Secret string   `mapstructure:"secret"` // HMAC-SHA256 signing key
	Events []string `mapstructure:"events"` // event types delivered, empty or "*" for all
}

// WebhookConfig holds webhook delivery configuration.
// Delivery is disabled when no endpoint is configured.
type WebhookConfig struct {
	Endpoints []WebhookEndpointConfig `mapstructure:"endpoints"`
	Timeout   time.Duration           `mapstructure:"timeout"`
}

// MarketplaceConfig holds the deployment parameters of the marketplace
type MarketplaceConfig struct {
	Deployer   string `mapstructure:"deployer"`    // administrator account, hex address
	AutoDeploy bool   `mapstructure:"auto_deploy"` // deploy on startup when the store holds no marketplace
}

// GenesisConfig holds the balances seeded at deployment.
// Each allocation is "<address>:<ether>", e.g. "0xf39F...2266:10000".
type GenesisConfig struct {
	Allocations []string `mapstructure:"allocations"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Emitter     EmitterConfig     `mapstructure:"emitter"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Genesis     GenesisConfig     `mapstructure:"genesis"`
}

// DeployConfig holds configuration for the deploy command
type DeployConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Genesis     GenesisConfig     `mapstructure:"genesis"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	setDatabaseDefaults(v)
	v.SetDefault("nats.stream_name", "MARKETPLACE_EVENTS")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "ff-marketplace-api")
	v.SetDefault("nats.duplicate_window", "2m")
	v.SetDefault("emitter.batch_size", 50)
	v.SetDefault("emitter.queue_size", 16)
	v.SetDefault("emitter.retry_initial_interval", "500ms")
	v.SetDefault("emitter.retry_max_elapsed_time", "1m")
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.redis_key_prefix", "ff:marketplace:ratelimit:")
	v.SetDefault("rate_limit.enable_local_fallback", true)
	v.SetDefault("rate_limit.local_fallback_multiplier", 0.5)
	v.SetDefault("rate_limit.redis_recheck_interval", "10s")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("marketplace.auto_deploy", false)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Database.Validate(); err != nil {
		return nil, err
	}
	if config.Marketplace.AutoDeploy && config.Marketplace.Deployer == "" {
		return nil, errors.New("marketplace.deployer is required when marketplace.auto_deploy is set")
	}
	// the memory store lives in this process only, cmd/deploy cannot reach it
	if config.Database.Driver == DATABASE_DRIVER_MEMORY && !config.Marketplace.AutoDeploy {
		return nil, errors.New("marketplace.auto_deploy is required with the memory database driver")
	}

	return &config, nil
}

// LoadDeployConfig loads configuration for the deploy command
func LoadDeployConfig(configFile string, envPath string) (*DeployConfig, error) {
	v := configureViper("deploy", configFile, envPath)

	// Set defaults
	setDatabaseDefaults(v)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config DeployConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Database.Validate(); err != nil {
		return nil, err
	}
	if config.Marketplace.Deployer == "" {
		return nil, errors.New("marketplace.deployer is required")
	}

	return &config, nil
}

func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DATABASE_DRIVER_POSTGRES)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
}

// readInConfig reads the config file, falling back to environment variables when there is none
func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/, cmd/deploy/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("FF_MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.driver",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.duplicate_window",
		// Emitter
		"emitter.batch_size",
		"emitter.queue_size",
		"emitter.retry_initial_interval",
		"emitter.retry_max_elapsed_time",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_allowed_origins",
		// Auth
		"auth.jwt_public_key",
		// Rate limit
		"rate_limit.enabled",
		"rate_limit.requests_per_second",
		"rate_limit.burst",
		"rate_limit.redis_addr",
		"rate_limit.redis_password",
		"rate_limit.redis_db",
		"rate_limit.redis_key_prefix",
		"rate_limit.enable_local_fallback",
		"rate_limit.local_fallback_multiplier",
		"rate_limit.redis_recheck_interval",
		// Webhook
		"webhook.timeout",
		// Marketplace
		"marketplace.deployer",
		"marketplace.auto_deploy",
		"genesis.allocations",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// Validate checks the driver and the settings it needs
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DATABASE_DRIVER_MEMORY:
		return nil
	case DATABASE_DRIVER_POSTGRES:
		if c.Host == "" {
			return errors.New("database.host is required")
		}
		if c.DBName == "" {
			return errors.New("database.dbname is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported database.driver: %q", c.Driver)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// DeployerAccount parses the configured deployer address
func (c *MarketplaceConfig) DeployerAccount() (domain.AccountID, error) {
	account, err := domain.ParseAccount(c.Deployer)
	if err != nil {
		return domain.ZeroAccount, fmt.Errorf("marketplace.deployer: %w", err)
	}
	return account, nil
}

// Balances parses the allocations into wei amounts per account.
// Repeated accounts accumulate.
func (c *GenesisConfig) Balances() (map[domain.AccountID]*big.Int, error) {
	balances := make(map[domain.AccountID]*big.Int, len(c.Allocations))
	for _, allocation := range c.Allocations {
		address, ether, ok := strings.Cut(strings.TrimSpace(allocation), ":")
		if !ok {
			return nil, fmt.Errorf("genesis allocation %q: expected <address>:<ether>", allocation)
		}

		account, err := domain.ParseAccount(address)
		if err != nil {
			return nil, fmt.Errorf("genesis allocation %q: %w", allocation, err)
		}
		amount, err := domain.ParseEther(ether)
		if err != nil {
			return nil, fmt.Errorf("genesis allocation %q: %w", allocation, err)
		}

		if existing, ok := balances[account]; ok {
			existing.Add(existing, amount)
			continue
		}
		balances[account] = amount
	}
	return balances, nil
}
