package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global     GlobalConfig     `mapstructure:"global"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Images     ImagesConfig     `mapstructure:"images"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	LockFile         string        `mapstructure:"lock_file"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ConfigPassphrase string        `mapstructure:"config_passphrase"` // optional; may come from env
}

type ExtractionConfig struct {
	// Destination is the library root extracted content is installed under.
	Destination string `mapstructure:"destination"`
	// TempRoot holds scratch extractions for descriptor-only reads.
	TempRoot       string `mapstructure:"temp_root"`
	MaxParallelism int    `mapstructure:"max_parallelism"`
	// ContentFolders extends the recognized DAZ library folder names.
	ContentFolders []string `mapstructure:"content_folders"`
}

type CatalogConfig struct {
	Backend       string       `mapstructure:"backend"` // local, s3
	Local         LocalCatalog `mapstructure:"local"`
	S3            S3Catalog    `mapstructure:"s3"`
	EncryptionKey string       `mapstructure:"encryption_key"`
}

type LocalCatalog struct {
	Path string `mapstructure:"path"`
}

type S3Catalog struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	SessionToken    string `mapstructure:"session_token"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	TLSInsecureSkip bool   `mapstructure:"tls_insecure_skip"`
}

type ImagesConfig struct {
	// Mode is the tri-state thumbnail decision: yes, no, or prompt.
	Mode         string        `mapstructure:"mode"`
	BaseURL      string        `mapstructure:"base_url"`
	Dir          string        `mapstructure:"dir"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}
