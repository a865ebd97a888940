package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/needleref/needleref/internal/imagesearch/rank"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Providers ProvidersConfig
	Search    SearchConfig
	Weights   rank.Weights
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig is optional; an empty host keeps the result cache in-process.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// ProviderConfig holds the upstream settings for one image provider. Keys are
// also picked up from the environment (UNSPLASH_API_KEY and friends) so they
// never have to live in the config file.
type ProviderConfig struct {
	APIHost    string        `mapstructure:"api_host"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  int           `mapstructure:"rate_limit"` // requests per minute, 0 = unlimited
}

type ProvidersConfig struct {
	Unsplash ProviderConfig `mapstructure:"unsplash"`
	Pexels   ProviderConfig `mapstructure:"pexels"`
	Pixabay  ProviderConfig `mapstructure:"pixabay"`
}

type SearchConfig struct {
	PerPage             int           `mapstructure:"per_page"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	BatchTimeout        time.Duration `mapstructure:"batch_timeout"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	MaxConcurrency      int           `mapstructure:"max_concurrency"`
	CacheCapacity       int           `mapstructure:"cache_capacity"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
	ResultCacheCapacity int           `mapstructure:"result_cache_capacity"`
	ResultCacheTTL      time.Duration `mapstructure:"result_cache_ttl"`
	MaxResults          int           `mapstructure:"max_results"`
	Expansion           bool          `mapstructure:"expansion"`
	WorkerPoolSize      int           `mapstructure:"worker_pool_size"`
	RateLimitPerMinute  int           `mapstructure:"rate_limit_per_minute"`
	RateLimitPolicy     string        `mapstructure:"rate_limit_policy"` // "log" or "enforce"
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	// Provider keys are secrets; allow them from the environment directly.
	_ = viper.BindEnv("providers.unsplash.api_key", "UNSPLASH_API_KEY")
	_ = viper.BindEnv("providers.pexels.api_key", "PEXELS_API_KEY")
	_ = viper.BindEnv("providers.pixabay.api_key", "PIXABAY_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
