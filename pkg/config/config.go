package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Storage      StorageConfig
	Integrations IntegrationsConfig
	Shopify      ShopifyConfig
	Gelato       GelatoConfig
	Queue        QueueConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type StorageConfig struct {
	AssetDir string `mapstructure:"asset_dir"`
}

type IntegrationsConfig struct {
	UseMockAPIs bool   `mapstructure:"use_mock_apis"`
	SigningKey  string `mapstructure:"signing_key"`
	AppBaseURL  string `mapstructure:"app_base_url"`
}

type ShopifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Scopes       string `mapstructure:"scopes"`
	APIVersion   string `mapstructure:"api_version"`
	// APIBaseURL overrides the per-shop https://{shop} base. Used by tests
	// and local development against a stub server.
	APIBaseURL string `mapstructure:"api_base_url"`
}

type GelatoConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
}

type QueueConfig struct {
	Name        string        `mapstructure:"name"`
	RetryLimit  int           `mapstructure:"retry_limit"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/podforge/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("PODFORGE")
	// Nested keys use dots; env vars use underscores (PODFORGE_SHOPIFY_CLIENT_ID).
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "podforge")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "podforge")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.addresses", []string{"localhost:6379"})
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("storage.asset_dir", "./data/assets")
	viper.SetDefault("integrations.use_mock_apis", true)
	viper.SetDefault("integrations.signing_key", "")
	viper.SetDefault("integrations.app_base_url", "http://localhost:5173")
	viper.SetDefault("shopify.client_id", "")
	viper.SetDefault("shopify.client_secret", "")
	viper.SetDefault("shopify.scopes", "read_products,write_products")
	viper.SetDefault("shopify.api_version", "2026-01")
	viper.SetDefault("shopify.api_base_url", "")
	viper.SetDefault("gelato.api_base_url", "https://product.gelatoapis.com")
	viper.SetDefault("queue.name", "pf:push")
	viper.SetDefault("queue.retry_limit", 3)
	viper.SetDefault("queue.backoff_base", "2s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
