package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		_ = godotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("line_channel_token", "LINE_CHANNEL_ACCESS_TOKEN")
		viper.BindEnv("line_channel_secret", "LINE_CHANNEL_SECRET")
		viper.BindEnv("port", "PORT")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "BOT_LANG")
		viper.BindEnv("timezone", "TIMEZONE")
		viper.BindEnv("alert_interval", "ALERT_INTERVAL")
		viper.BindEnv("alert_repeat", "ALERT_REPEAT")
		viper.BindEnv("digest_weekday", "DIGEST_WEEKDAY")
		viper.BindEnv("digest_hour", "DIGEST_HOUR")

		viper.SetDefault("port", 5000)
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("db_path", "data/bot.db")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "zh_TW")
		viper.SetDefault("timezone", "Asia/Taipei")
		viper.SetDefault("alert_interval", "1m")
		viper.SetDefault("alert_repeat", "once")
		viper.SetDefault("digest_weekday", int(time.Monday))
		viper.SetDefault("digest_hour", 8)
	})
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
