package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers default values for all configuration keys. Keys
// must be known to viper for AutomaticEnv to reach them on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "")
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel_prefix", "switchlist:")

	v.SetDefault("api.rate_rps", 0)
	v.SetDefault("api.rate_burst", 20)
	v.SetDefault("api.allow_origins", []string{})

	v.SetDefault("webhooks.urls", []string{})
	v.SetDefault("webhooks.secret", "")
	v.SetDefault("webhooks.max_attempts", 5)
	v.SetDefault("webhooks.timeout", 5*time.Second)
	v.SetDefault("webhooks.queue_size", 256)
	v.SetDefault("webhooks.workers", 2)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
