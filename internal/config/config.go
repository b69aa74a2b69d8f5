package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	ReadLimit int64  `mapstructure:"read_limit"`
	Secret    string `mapstructure:"secret"`

	// NegotiationTimeout bounds the wait for a client answer after a
	// relay-sent offer; 0 disables the bound.
	NegotiationTimeout time.Duration `mapstructure:"negotiation_timeout"`

	// CacheTTL controls eviction of publications whose publisher is offline;
	// 0 keeps entries forever.
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheSweepInterval time.Duration `mapstructure:"cache_sweep_interval"`

	STUNURLs     []string `mapstructure:"stun_urls"`
	TURNURL      string   `mapstructure:"turn_url"`
	TURNUsername string   `mapstructure:"turn_username"`
	TURNPassword string   `mapstructure:"turn_password"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("negotiation_timeout", "15s")
	v.SetDefault("cache_ttl", "0")
	v.SetDefault("cache_sweep_interval", "1m")
	v.SetDefault("stun_urls", []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"})

	// TURN credentials usually arrive via environment, as the pushers do it.
	v.SetEnvPrefix("VISION")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d\n", cfg.Mode, cfg.Port)
	return &cfg, nil
}
