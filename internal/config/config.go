package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type App struct {
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
}

func (a *App) PortString() string { return fmt.Sprintf("%d", a.Port) }

type Mongo struct {
	URI string `yaml:"uri"`
	DB  string `yaml:"db"`
}

// Redis is optional; an empty Addr disables the conversation cache.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Kafka is optional; no brokers disables event publishing.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Webhook struct {
	VerifyToken string `yaml:"verify_token"`
	SelfAddress string `yaml:"self_address"`
}

type Simulator struct {
	DeliverAfterSeconds int `yaml:"deliver_after_seconds"`
	ReadAfterSeconds    int `yaml:"read_after_seconds"`

	// derived
	DeliverAfter time.Duration `yaml:"-"`
	ReadAfter    time.Duration `yaml:"-"`
}

type Config struct {
	App       App       `yaml:"app"`
	Mongo     Mongo     `yaml:"mongo"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Webhook   Webhook   `yaml:"webhook"`
	Simulator Simulator `yaml:"simulator"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		b, _ := os.ReadFile("config.yaml")
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	overrideFromEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	cfg.Simulator.DeliverAfter = time.Duration(cfg.Simulator.DeliverAfterSeconds) * time.Second
	cfg.Simulator.ReadAfter = time.Duration(cfg.Simulator.ReadAfterSeconds) * time.Second

	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		n, _ := strconv.Atoi(v)
		cfg.App.Port = n
	}

	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_NAME"); v != "" {
		cfg.Mongo.DB = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	if v := os.Getenv("WEBHOOK_VERIFY_TOKEN"); v != "" {
		cfg.Webhook.VerifyToken = v
	}
	if v := os.Getenv("SELF_ADDRESS"); v != "" {
		cfg.Webhook.SelfAddress = v
	}
}

func validate(cfg *Config) error {
	if cfg.App.Port == 0 {
		return errors.New("app.port missing or invalid")
	}

	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri missing")
	}
	if cfg.Mongo.DB == "" {
		return errors.New("mongo.db missing")
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return errors.New("kafka.topic required when brokers are set")
	}

	return nil
}
