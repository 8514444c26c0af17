package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Remote    RemoteConfig    `yaml:"remote"`
	Routing   RoutingConfig   `yaml:"routing"`
	Redis     RedisConfig     `yaml:"redis"`
	Messaging MessagingConfig `yaml:"messaging"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Queue     QueueConfig     `yaml:"queue"`
	Web       WebConfig       `yaml:"web"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig points at the hosted order store (Postgres).
type RemoteConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Database     string        `yaml:"database"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	SSLMode      string        `yaml:"sslmode"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

type RoutingConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Profile  string        `yaml:"profile"`
	Timeout  time.Duration `yaml:"timeout"`
	StoreLat float64       `yaml:"store_lat"`
	StoreLng float64       `yaml:"store_lng"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MessagingConfig struct {
	Backend       string        `yaml:"backend"` // "mqtt" or "kafka"
	MQTT          MQTTConfig    `yaml:"mqtt"`
	Kafka         KafkaConfig   `yaml:"kafka"`
	PositionTopic string        `yaml:"position_topic"`
	SyncTopic     string        `yaml:"sync_topic"`
	EventsTopic   string        `yaml:"events_topic"`
	CourierID     string        `yaml:"courier_id"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

type TrackingConfig struct {
	ToleranceMeters float64       `yaml:"tolerance_meters"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PositionTimeout time.Duration `yaml:"position_timeout"`
	PositionMaxAge  time.Duration `yaml:"position_max_age"`
	HighlightExpiry time.Duration `yaml:"highlight_expiry"`
}

type QueueConfig struct {
	DrainInterval time.Duration `yaml:"drain_interval"`
	FlushBatch    int           `yaml:"flush_batch"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "couriertrack.db",
		},
		Remote: RemoteConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "storefront",
			User:         "courier",
			Password:     "",
			SSLMode:      "disable",
			PingInterval: 10 * time.Second,
		},
		Routing: RoutingConfig{
			BaseURL:  "https://router.project-osrm.org",
			Profile:  "driving",
			Timeout:  8 * time.Second,
			StoreLat: -30.0277,
			StoreLng: -51.2287,
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Messaging: MessagingConfig{
			Backend: "mqtt",
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "couriertrack",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "couriertrack",
			},
			PositionTopic: "courier/position",
			SyncTopic:     "courier/sync",
			EventsTopic:   "courier/events",
			CourierID:     "",
		},
		Tracking: TrackingConfig{
			ToleranceMeters: 250,
			PollInterval:    30 * time.Second,
			PositionTimeout: 3 * time.Second,
			PositionMaxAge:  2 * time.Minute,
			HighlightExpiry: 24 * time.Second,
		},
		Queue: QueueConfig{
			DrainInterval: 15 * time.Second,
			FlushBatch:    50,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8084,
			SessionSecret: "change-me-in-production",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
