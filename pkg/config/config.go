package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iguard-io/mlpipe/pkg/env"
)

// required keys of the workspace config file
var requiredKeys = []string{
	"subscription_id",
	"resource_group",
	"workspace_name",
	"cluster",
	"experiment",
	"datasource_name",
}

// MissingKeyError reports a required config key that is absent from the file.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required config key %q", e.Key)
}

// Config holds the workspace settings, loaded once at startup and immutable afterwards.
type Config struct {
	SubscriptionID string `mapstructure:"subscription_id"`
	ResourceGroup  string `mapstructure:"resource_group"`
	WorkspaceName  string `mapstructure:"workspace_name"`
	Cluster        string `mapstructure:"cluster"`
	Experiment     string `mapstructure:"experiment"`
	DatasourceName string `mapstructure:"datasource_name"`
	Endpoint       string `mapstructure:"endpoint"`
	Token          string `mapstructure:"token"`
}

// Load reads the JSON config file and validates that every required key is present.
// Validation happens before any remote call so a broken config fails fast.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		zap.S().Errorw("config read error", "path", path, "err", err)
		return nil, err
	}
	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			return nil, &MissingKeyError{Key: key}
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	// flags and env take precedence over the file for the connection settings
	if endpoint := viper.GetString(env.Endpoint); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if token := viper.GetString(env.Token); token != "" {
		cfg.Token = token
	}
	return cfg, nil
}
