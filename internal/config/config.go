package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/screen-detect/internal/apperr"
	"github.com/Brownie44l1/screen-detect/internal/dataset"
	"github.com/Brownie44l1/screen-detect/internal/model"
)

// Config holds all screen-detect configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Dataset DatasetConfig `yaml:"dataset"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	// MaxImagePixels bounds width*height of a decoded upload.
	MaxImagePixels int64  `yaml:"max_image_pixels"`
	ReadTimeout    string `yaml:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout"`
}

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	Path string `yaml:"path"`
	// MetadataPath optionally points at a JSON file overriding Metadata.
	MetadataPath      string         `yaml:"metadata_path"`
	SharedLibraryPath string         `yaml:"shared_library_path"` // onnxruntime .so/.dylib/.dll
	Metadata          model.Metadata `yaml:"metadata"`
}

// DatasetConfig configures the offline data preparation.
type DatasetConfig struct {
	ArchivePath string         `yaml:"archive_path"`
	RawDir      string         `yaml:"raw_dir"`
	SplitDir    string         `yaml:"split_dir"`
	Seed        int64          `yaml:"seed"`
	Ratios      dataset.Ratios `yaml:"ratios"`
	// ScreenMarker is the case-insensitive file name substring that marks a
	// photo of a screen.
	ScreenMarker string `yaml:"screen_marker"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "5001",
			MaxUploadBytes: 10 << 20,
			MaxImagePixels: 50_000_000,
			ReadTimeout:    "30s",
			WriteTimeout:   "60s",
		},
		Model: ModelConfig{
			Path:     "models/screen_detector.onnx",
			Metadata: model.DefaultMetadata(),
		},
		Dataset: DatasetConfig{
			ArchivePath:  "files.zip",
			RawDir:       "data/raw",
			SplitDir:     "data/split",
			Seed:         dataset.DefaultSeed,
			Ratios:       dataset.DefaultRatios,
			ScreenMarker: "original",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperr.E(apperr.InvalidConfig, "parse "+path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnvOverrides() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if path := os.Getenv("MODEL_PATH"); path != "" {
		c.Model.Path = path
	}
	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		c.Model.SharedLibraryPath = lib
	}
	if archive := os.Getenv("DATASET_ARCHIVE"); archive != "" {
		c.Dataset.ArchivePath = archive
	}
	if seed := os.Getenv("DATASET_SEED"); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return apperr.Errorf(apperr.InvalidConfig, "DATASET_SEED", "%q is not an integer", seed)
		}
		c.Dataset.Seed = v
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if err := c.Dataset.Ratios.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Dataset.ScreenMarker) == "" {
		return apperr.Errorf(apperr.InvalidConfig, "validate", "dataset.screen_marker must not be empty")
	}
	if err := dataset.CheckDirs(c.Dataset.RawDir, c.Dataset.SplitDir); err != nil {
		return err
	}
	if c.Server.MaxImagePixels < 0 {
		return apperr.Errorf(apperr.InvalidConfig, "validate", "server.max_image_pixels must not be negative")
	}
	if err := c.Model.Metadata.Validate(); err != nil {
		return apperr.E(apperr.InvalidConfig, "model metadata", err)
	}
	if c.Model.Path == "" {
		return apperr.Errorf(apperr.InvalidConfig, "validate", "model path is required")
	}
	for name, v := range map[string]string{"read_timeout": c.Server.ReadTimeout, "write_timeout": c.Server.WriteTimeout} {
		if _, err := time.ParseDuration(v); err != nil {
			return apperr.Errorf(apperr.InvalidConfig, "validate", "server.%s: %v", name, err)
		}
	}
	return nil
}

// GetReadTimeout returns the server read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the server write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Partitioner builds the dataset partitioner described by the config.
func (c *Config) Partitioner() dataset.Partitioner {
	return dataset.Partitioner{
		Ratios: c.Dataset.Ratios,
		Seed:   c.Dataset.Seed,
		Rule:   dataset.SubstringRule(c.Dataset.ScreenMarker, dataset.LabelScreen),
	}
}
