package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads a YAML config file, expands ${ENV} references and applies
// defaults plus validation. A validation failure here is fatal for startup.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	expandEnv(&cfg)
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envRef = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// expandEnv resolves ${VAR} values for the secret-bearing fields so keys
// never have to live in the config file itself.
func expandEnv(cfg *Config) {
	for _, p := range []*string{
		&cfg.Chain.TraderKey,
		&cfg.Agent.APIKey,
		&cfg.Notify.Telegram.BotToken,
		&cfg.Notify.Telegram.ChatID,
	} {
		if m := envRef.FindStringSubmatch(strings.TrimSpace(*p)); m != nil {
			*p = os.Getenv(m[1])
		}
	}
}
