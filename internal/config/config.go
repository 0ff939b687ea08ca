package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"dev"`
	ServiceName string            `yaml:"service_name" env:"SERVICE_NAME" env-default:"coffee-register"`
	LogLevel    string            `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTPServer  HTTPServerConfig  `yaml:"http_server"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Checkout    CheckoutConfig    `yaml:"checkout"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	MockBackend MockBackendConfig `yaml:"mock_backend"`
}

type HTTPServerConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

// UpstreamConfig points at the order/stock/point/user/product services. They share one base URL and key.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:5000"`
	APIKey  string        `yaml:"-" env:"API_KEY" env-default:"shop-system-key"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"5s"`
}

// CheckoutConfig defaults live in defaultConfig; an env-default tag would override an explicit false or 0 from the file.
type CheckoutConfig struct {
	StockCheck   bool    `yaml:"stock_check" env:"CHECKOUT_STOCK_CHECK"`
	StockConsume bool    `yaml:"stock_consume" env:"CHECKOUT_STOCK_CONSUME"`
	PointAccrual bool    `yaml:"point_accrual" env:"CHECKOUT_POINT_ACCRUAL"`
	PointRate    float64 `yaml:"point_rate" env:"CHECKOUT_POINT_RATE"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CATALOG_CACHE_TTL" env-default:"30s"`
}

// MockBackendConfig enables the in-process upstream used for demos and local runs.
type MockBackendConfig struct {
	Enabled bool   `yaml:"enabled" env:"MOCK_BACKEND" env-default:"false"`
	Address string `yaml:"address" env:"MOCK_BACKEND_ADDRESS" env-default:"localhost:5000"`
}

// MustLoad reads the file named by -config or CONFIG_PATH; with neither, defaults and env are used.
func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		cfg, err := Load()
		if err != nil {
			panic(err)
		}
		return cfg
	}
	return MustLoadByPath(path)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

// Load builds the config from defaults and environment variables only.
func Load() (*Config, error) {
	cfg := defaultConfig()
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	return &cfg, cfg.validate()
}

// MustLoadByPath panics when the file is missing or invalid.
func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	cfg := defaultConfig()
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic(fmt.Sprintf("can't read config file %s: %v", configPath, err))
	}
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Checkout: CheckoutConfig{
			StockCheck:   true,
			StockConsume: true,
			PointAccrual: true,
			PointRate:    0.1,
		},
	}
}

func (c *Config) validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("config: upstream base url is required")
	}
	if c.Checkout.PointRate < 0 || c.Checkout.PointRate > 1 {
		return fmt.Errorf("config: point rate %v out of range [0,1]", c.Checkout.PointRate)
	}
	return nil
}
