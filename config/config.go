package config

import (
	"errors"
	"os"
	"time"

	"github.com/cwrk-planet/relay-service/internal/domain"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr      string `yaml:"addr"`
	AssetsDir string `yaml:"assetsDir"` // каталог статики клиента
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // relay-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Storage struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"inMemory"` // для локального запуска без диска
}

type Room struct {
	Retention    string `yaml:"retention"`    // окно хранения, например "72h"
	HistoryLimit int    `yaml:"historyLimit"` // сколько событий отдавать при подключении
}

type Identity struct {
	Salt              string `yaml:"salt"`
	FingerprintHeader string `yaml:"fingerprintHeader"` // заголовок с JA4 от edge-прокси
}

type Access struct {
	AllowedOrigin string `yaml:"allowedOrigin"`
	AllowDev      bool   `yaml:"allowDev"` // пропускать всё, для локальной разработки
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Room     Room     `yaml:"room"`
	Identity Identity `yaml:"identity"`
	Access   Access   `yaml:"access"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Access.AllowedOrigin == "" && !c.Access.AllowDev {
		return errors.New("access.allowedOrigin is required unless access.allowDev is set")
	}
	if c.Storage.Dir == "" && !c.Storage.InMemory {
		return errors.New("storage.dir is required unless storage.inMemory is set")
	}
	// установка дефолтов, если значения не указаны
	if c.HTTP.AssetsDir == "" {
		c.HTTP.AssetsDir = "./public"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "relay-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Room.HistoryLimit <= 0 {
		c.Room.HistoryLimit = 200
	}
	if c.Identity.Salt == "" {
		c.Identity.Salt = "default_salt"
	}
	if c.Identity.FingerprintHeader == "" {
		c.Identity.FingerprintHeader = "X-JA4"
	}
	return nil
}

// RetentionWindow парсит room.retention; дефолт — 72 часа.
func (c *Config) RetentionWindow() time.Duration {
	return parseDurationOr(domain.DefaultRetention, c.Room.Retention)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
