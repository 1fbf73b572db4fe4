package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

// Engine configures the reward code issuer. BaseUrl is the public base used
// to build the /redeem and /review links handed to the presentation layer.
type EngineConfig struct {
	BaseUrl           string `yaml:"base_url" env:"ENGINE_BASE_URL" env-default:""`
	DefaultExpiryDays int    `yaml:"default_expiry_days" env-default:"7"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"qreward"`
}

type MySqlConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	HostName string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MYSQL_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"qreward"`
}

type BoltConfig struct {
	Path string `yaml:"path" env-default:"qreward.db"`
}

type TelegramConfig struct {
	Enabled bool    `yaml:"enabled" env-default:"false"`
	ApiKey  string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatIds []int64 `yaml:"chat_ids"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Storage  string         `yaml:"storage" env-default:"bolt"`
	Listen   Listen         `yaml:"listen"`
	Engine   EngineConfig   `yaml:"engine"`
	Mongo    MongoConfig    `yaml:"mongo"`
	MySql    MySqlConfig    `yaml:"mysql"`
	Bolt     BoltConfig     `yaml:"bolt"`
	Telegram TelegramConfig `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
