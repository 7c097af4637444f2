package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort    string  `mapstructure:"SERVER_PORT"`
	RedisUrl      string  `mapstructure:"REDIS_URL"`
	MongoUri      string  `mapstructure:"MONGO_URI"`
	KatagoBin     string  `mapstructure:"KATAGO_BIN"`
	KatagoModel   string  `mapstructure:"KATAGO_MODEL"`
	KatagoConfig  string  `mapstructure:"KATAGO_CONFIG"`
	MaxVisits     int     `mapstructure:"MAX_VISITS"`
	DefaultKomi   float64 `mapstructure:"DEFAULT_KOMI"`
	SgfStrict     bool    `mapstructure:"SGF_STRICT"`
	IsLocalCors   bool    `mapstructure:"LOCAL_CORS"`
	PageLimitList int     `mapstructure:"PAGE_LIMIT_LIST"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MaxVisits == 0 {
		cfg.MaxVisits = 50
	}
	if cfg.DefaultKomi == 0 {
		cfg.DefaultKomi = 6.5
	}

	return &cfg, nil
}
