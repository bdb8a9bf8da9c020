package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"targetapi/pkg/models"
	"targetapi/pkg/utils/system"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a fully populated default config to configPath.
func InitConfig(configPath string) error {
	var config models.TargetAPIConfig
	if err := ApplyDefaults(&config, configPath); err != nil {
		return err
	}

	config.Log.ToFile = true
	config.Log.FilePath = filepath.Join(config.Storage.Path, "targetapi.log")
	config.Log.MaxSizeMB = 10
	config.Log.MaxBackups = 3

	metricsPort, err := system.GetFreePort(config.Server.Host)
	if err != nil {
		return err
	}
	config.Metrics.Port = metricsPort

	config.Mirror.Redis = &models.RedisConfig{
		Address: "localhost:6379",
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return enc.Close()
}
