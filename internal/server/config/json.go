package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/flagx"
	"github.com/pkgdepot/pkgdepot/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "1m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, set fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN      string         `json:"database_dsn"`
	TempDir          string         `json:"temp_dir"`
	HvifToolPath     string         `json:"hvif_tool_path"`
	PngOptimizerPath string         `json:"png_optimizer_path"`
	TransferTimeout  timex.Duration `json:"transfer_timeout"`
	IconCacheEntries int            `json:"icon_cache_entries"`
	IconCacheTTL     timex.Duration `json:"icon_cache_ttl"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. Absent keys keep their current
// values. If the file cannot be read or contains invalid JSON, the function
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.TempDir != "" {
		config.TempDir = c.TempDir
	}
	if c.HvifToolPath != "" {
		config.HvifToolPath = c.HvifToolPath
	}
	if c.PngOptimizerPath != "" {
		config.PngOptimizerPath = c.PngOptimizerPath
	}
	if c.TransferTimeout.Duration != 0 {
		config.TransferTimeout = time.Duration(c.TransferTimeout.Duration)
	}
	if c.IconCacheEntries != 0 {
		config.IconCacheEntries = c.IconCacheEntries
	}
	if c.IconCacheTTL.Duration != 0 {
		config.IconCacheTTL = time.Duration(c.IconCacheTTL.Duration)
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
