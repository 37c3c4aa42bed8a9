package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Audio     AudioConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// PublicURL is prepended to generated audio file paths.
	PublicURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	GeneratePerHour int
	AudioPerHour    int
	CommentsPerMin  int
}

type AudioConfig struct {
	// Queue concurrency for the asynq worker server.
	Concurrency int
	// Retention of finished job records in Redis, hours.
	RetentionHours int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.public_url", "http://localhost:8000")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.audio_per_hour", 30)
	viper.SetDefault("ratelimit.comments_per_min", 20)
	viper.SetDefault("audio.concurrency", 10)
	viper.SetDefault("audio.retention_hours", 24)

	// Config file is optional; defaults plus env cover local runs.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			PublicURL: viper.GetString("server.public_url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			AudioPerHour:    viper.GetInt("ratelimit.audio_per_hour"),
			CommentsPerMin:  viper.GetInt("ratelimit.comments_per_min"),
		},
		Audio: AudioConfig{
			Concurrency:    viper.GetInt("audio.concurrency"),
			RetentionHours: viper.GetInt("audio.retention_hours"),
		},
	}

	return cfg, nil
}
