package config

import (
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"sync"
	"time"
)

const DefaultAPIURL = "https://api.coingecko.com/api/v3"

var once sync.Once

func InitConfig() {
	once.Do(func() {
		// a missing .env is fine, the environment may already carry everything
		_ = godotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_API_KEY")
		viper.BindEnv("coingecko_api_key", "COINGECKO_API_KEY")
		viper.BindEnv("coingecko_api_url", "COINGECKO_API_URL")
		viper.BindEnv("request_timeout", "REQUEST_TIMEOUT")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "BOT_LANG")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("coingecko_api_url", DefaultAPIURL)
		viper.SetDefault("request_timeout", 5*time.Second)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

// Validate reports the first required secret that is not set.
func Validate() error {
	InitConfig()
	for _, key := range []string{"telegram_bot_token", "coingecko_api_key"} {
		if viper.GetString(key) == "" {
			return errors.Errorf("missing required setting %s", key)
		}
	}
	return nil
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
