package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Homework HomeworkConfig `mapstructure:"homework"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Filename string `mapstructure:"filename"`
	MaxSize  int    `mapstructure:"max_size"`
	MaxAge   int    `mapstructure:"max_age"`
	Compress bool   `mapstructure:"compress"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	JaegerURL   string  `mapstructure:"jaeger_url"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // local | minio
	LocalPath string `mapstructure:"local_path"`
	BaseURL   string `mapstructure:"base_url"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type PaymentConfig struct {
	ServerKey   string `mapstructure:"server_key"`
	ClientKey   string `mapstructure:"client_key"`
	Environment string `mapstructure:"environment"` // sandbox | production
}

type HomeworkConfig struct {
	DeadlineDays int `mapstructure:"deadline_days"`
}

var cfg *Config

// LoadConfig reads config.yaml from path and overlays environment
// variables for secrets.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("jwt.expire_hours", 72)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.filename", "logs/app.log")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_age", 30)
	viper.SetDefault("storage.provider", "local")
	viper.SetDefault("storage.local_path", "uploads")
	viper.SetDefault("payment.environment", "sandbox")
	viper.SetDefault("homework.deadline_days", 7)

	_ = viper.BindEnv("database.password", "DB_PASSWORD")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("payment.server_key", "MIDTRANS_SERVER_KEY")
	_ = viper.BindEnv("payment.client_key", "MIDTRANS_CLIENT_KEY")
	_ = viper.BindEnv("storage.access_key", "MINIO_ACCESS_KEY")
	_ = viper.BindEnv("storage.secret_key", "MINIO_SECRET_KEY")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg = c
	return c, nil
}

// Get returns the loaded configuration. Tests may inject one via Set.
func Get() *Config {
	if cfg == nil {
		cfg = &Config{
			JWT:      JWTConfig{Secret: "dev-secret", ExpireHours: 72},
			Homework: HomeworkConfig{DeadlineDays: 7},
		}
	}
	return cfg
}

func Set(c *Config) {
	cfg = c
}
