package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/siblount/DazProductInstaller/internal/cryptoutil"
)

const (
	envPrefix = "DPI"
)

// Load reads configuration from a file (optionally encrypted), env vars, and defaults.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
		if isEncryptedPath(resolved) {
			if typ := configTypeFromPath(resolved); typ != "" {
				vp.SetConfigType(typ)
			}
			key := os.Getenv("DPI_CONFIG_KEY")
			if key == "" {
				key = vp.GetString("global.config_passphrase")
			}
			if key == "" {
				return nil, errors.New("config file is encrypted but DPI_CONFIG_KEY is not set")
			}
			plain, decErr := decryptConfig(data, key)
			if decErr != nil {
				return nil, fmt.Errorf("decrypt config: %w", decErr)
			}
			if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else {
			vp.SetConfigFile(resolved)
			if err := vp.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	applyPostLoadDefaults(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if envPath := os.Getenv("DPI_CONFIG"); envPath != "" {
		return envPath, nil
	}

	candidates := []string{
		"dpi.yaml",
		"dpi.yml",
		"dpi.toml",
		"dpi.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		base := filepath.Join(configDir, "dpi")
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		for _, c := range []string{"dpi.yaml.enc", "dpi.yml.enc", "dpi.toml.enc"} {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}

	return "", nil
}

func isEncryptedPath(path string) bool {
	return strings.HasSuffix(path, ".enc") || strings.HasSuffix(path, ".encrypted")
}

func configTypeFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".toml") || strings.HasSuffix(path, ".toml.enc") || strings.HasSuffix(path, ".toml.encrypted"):
		return "toml"
	case strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.enc") || strings.HasSuffix(path, ".json.encrypted"):
		return "json"
	default:
		return "yaml"
	}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "json")
	vp.SetDefault("global.operation_timeout", "1h")
	vp.SetDefault("extraction.destination", "./library")
	vp.SetDefault("extraction.max_parallelism", 4)
	vp.SetDefault("catalog.backend", "local")
	vp.SetDefault("catalog.local.path", "./records")
	vp.SetDefault("images.mode", "no")
	vp.SetDefault("images.retry_count", 3)
	vp.SetDefault("images.retry_backoff", "5s")
}

func applyPostLoadDefaults(cfg *Config) {
	if cfg.Global.OperationTimeout == 0 {
		cfg.Global.OperationTimeout = time.Hour
	}
	if cfg.Extraction.MaxParallelism <= 0 {
		cfg.Extraction.MaxParallelism = 4
	}
	if cfg.Extraction.TempRoot == "" {
		cfg.Extraction.TempRoot = os.TempDir()
	}
	if cfg.Images.RetryBackoff == 0 {
		cfg.Images.RetryBackoff = 5 * time.Second
	}
	if cfg.Images.Dir == "" {
		cfg.Images.Dir = filepath.Join(cfg.Extraction.Destination, ".thumbnails")
	}
}

func expandEnv(cfg *Config) {
	cfg.Catalog.EncryptionKey = os.ExpandEnv(cfg.Catalog.EncryptionKey)
	cfg.Catalog.S3.AccessKey = os.ExpandEnv(cfg.Catalog.S3.AccessKey)
	cfg.Catalog.S3.SecretKey = os.ExpandEnv(cfg.Catalog.S3.SecretKey)
	cfg.Catalog.S3.SessionToken = os.ExpandEnv(cfg.Catalog.S3.SessionToken)
	cfg.Images.BaseURL = os.ExpandEnv(cfg.Images.BaseURL)
}

func decryptConfig(ciphertext []byte, key string) ([]byte, error) {
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return cryptoutil.DecryptConfig(ciphertext, parsed)
}
