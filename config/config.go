package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Presence PresenceConfig `mapstructure:"presence"`
}

type ServerConfig struct {
	ListenAddr     string  `mapstructure:"listen_addr"` // UDP bind address
	Debug          bool    `mapstructure:"debug"`
	Workers        int     `mapstructure:"workers"`
	QueueSize      int     `mapstructure:"queue_size"`
	QueuePolicy    string  `mapstructure:"queue_policy"` // block | drop-newest | drop-oldest
	RateLimitPPS   float64 `mapstructure:"rate_limit_pps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type AdminConfig struct {
	ListenAddr string        `mapstructure:"listen_addr"` // HTTP bind address, empty disables
	AdminKey   string        `mapstructure:"admin_key"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	JWTTTL     time.Duration `mapstructure:"jwt_ttl"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"` // empty → in-process cache
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type PresenceConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"` // 0 disables the sweep
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.listen_addr", ":50000")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.workers", 4)
	v.SetDefault("server.queue_size", 256)
	v.SetDefault("server.queue_policy", "drop-newest")
	v.SetDefault("server.rate_limit_pps", 200)
	v.SetDefault("server.rate_limit_burst", 400)
	v.SetDefault("admin.jwt_ttl", "24h")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./chat.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("presence.idle_timeout", "0s")
	v.SetDefault("presence.sweep_interval", "30s")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
