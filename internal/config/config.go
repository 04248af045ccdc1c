// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	AdminCreationKey        string `yaml:"admin_creation_key" env:"ADMIN_CREATION_KEY"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Redis                   RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	SMTP                    SMTP            `yaml:"smtp"`
	Workflow                Workflow        `yaml:"workflow"`
	Family                  Family          `yaml:"family"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
	Background              Background      `yaml:"background"`
	Scheduler               Scheduler       `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Address     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeoutredis" env-default:"3s"`
	TTL         time.Duration `yaml:"ttl" env-default:"1h"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_EXPIRES_IN" env-default:"24h"`
}

// RabbitMQ настройки подключения к брокеру сообщений.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP настройки почтового сервера для воркера рассылки.
type SMTP struct {
	Host string `yaml:"host" env:"SMTP_HOST"`
	Port string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User string `yaml:"user" env:"SMTP_USER"`
	Pass string `yaml:"pass" env:"SMTP_PASS"`
}

// Workflow настройки внешнего планировщика напоминаний.
type Workflow struct {
	// ServerURL базовый адрес этого сервиса, на который workflow делает обратный вызов.
	// Пустое значение отключает запуск workflow.
	ServerURL      string        `yaml:"server_url" env:"SERVER_URL"`
	TriggerURL     string        `yaml:"trigger_url" env:"WORKFLOW_TRIGGER_URL"`
	Token          string        `yaml:"token" env:"WORKFLOW_TOKEN"`
	CallbackSecret string        `yaml:"callback_secret" env:"WORKFLOW_CALLBACK_SECRET"`
	Timeout        time.Duration `yaml:"timeout" env-default:"5s"`
}

// Family параметры семейных подписок.
type Family struct {
	InviteTTL  time.Duration `yaml:"invite_ttl" env-default:"24h"`
	MaxMembers int           `yaml:"max_members" env-default:"5"`
}

// RateLimit параметры ограничителя запросов.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Background параметры фоновых задач.
type Background struct {
	Concurrency int           `yaml:"concurrency" env-default:"64"`
	TaskTimeout time.Duration `yaml:"task_timeout" env-default:"10s"`
}

// Scheduler параметры планировщика напоминаний.
type Scheduler struct {
	Interval time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"12h"`
}

// MustLoad функция для загрузки конфига, путь к файлу берется из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Redis:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  TTL: %s\n"+
			"RabbitMQ:\n"+
			"  MaxRetries: %d\n"+
			"Workflow:\n"+
			"  ServerURL: %s\n"+
			"  Timeout: %s\n"+
			"Family:\n"+
			"  InviteTTL: %s\n"+
			"  MaxMembers: %d\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Redis.Address,
		c.Redis.DB,
		c.Redis.TTL,
		c.RabbitMQ.MaxRetries,
		c.Workflow.ServerURL,
		c.Workflow.Timeout,
		c.Family.InviteTTL,
		c.Family.MaxMembers,
		c.TokenTTL,
	)
}
