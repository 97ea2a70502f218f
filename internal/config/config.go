// Package config assembles the runtime configuration of the enrichment
// pipeline: inference client settings, artifact locations, and the analysis
// parameters that shape each stage. Values come from defaults overridden by
// environment variables; the service API key is the only required input.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/newspulse/enrich/internal/infer"
)

// Environment variables recognized by Load.
const (
	EnvAPIKey    = "GENAI_KEY"
	EnvEndpoint  = "GENAI_ENDPOINT"
	EnvDataDir   = "ENRICH_DATA_DIR"
	EnvRedisAddr = "ENRICH_REDIS_ADDR"
	EnvRedisPass = "ENRICH_REDIS_PASSWORD"
	EnvRedisDB   = "ENRICH_REDIS_DB"
)

// Paths locates the input dataset and every artifact the pipeline persists.
type Paths struct {
	Dataset       string
	Keywords      string
	Annotated     string
	Highlights    string
	Themes        string
	RefinedThemes string
	TrendTable    string
}

// Analysis carries the stage parameters of the enrichment run.
type Analysis struct {
	// ChunkSize is the number of articles sent per annotation request.
	ChunkSize int
	// TopKeywords is the N used by the top-N keyword extraction.
	TopKeywords int
	// RefineIterations is the number of theme refinement passes.
	RefineIterations int
	// FastModel handles cheap single-list calls like keyword normalization.
	FastModel string
	// DeepModel handles annotation, highlights, and theme extraction.
	DeepModel string
}

// Config is the full runtime configuration.
type Config struct {
	Infer    infer.Config
	Paths    Paths
	Analysis Analysis
}

// Default returns the configuration used when no environment overrides are
// set, rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		Infer: infer.DefaultConfig(),
		Paths: Paths{
			Dataset:       filepath.Join(dataDir, "raw", "data.csv"),
			Keywords:      filepath.Join(dataDir, "processed", "keywords.json"),
			Annotated:     filepath.Join(dataDir, "processed", "preanalysis.csv"),
			Highlights:    filepath.Join(dataDir, "processed", "daily_highlight.json"),
			Themes:        filepath.Join(dataDir, "processed", "daily_theme.json"),
			RefinedThemes: filepath.Join(dataDir, "processed", "refined_theme.json"),
			TrendTable:    filepath.Join(dataDir, "processed", "theme_table.csv"),
		},
		Analysis: Analysis{
			ChunkSize:        45,
			TopKeywords:      100,
			RefineIterations: 3,
			FastModel:        "gemini-2.0-flash",
			DeepModel:        "gemini-2.5-flash",
		},
	}
}

// Load builds the configuration from the environment. The API key is
// required; everything else falls back to defaults. Setting a Redis address
// enables the response cache.
func Load() (Config, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return Config{}, fmt.Errorf("%s environment variable is required", EnvAPIKey)
	}

	dataDir := os.Getenv(EnvDataDir)
	if dataDir == "" {
		dataDir = "data"
	}

	cfg := Default(dataDir)
	cfg.Infer.Provider.APIKey = apiKey
	if endpoint := os.Getenv(EnvEndpoint); endpoint != "" {
		cfg.Infer.Provider.Endpoint = endpoint
	}

	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Infer.Cache.Enabled = true
		cfg.Infer.Cache.RedisAddr = addr
		cfg.Infer.Cache.RedisPassword = os.Getenv(EnvRedisPass)
		cfg.Infer.Cache.TTL = 24 * time.Hour
		if raw := os.Getenv(EnvRedisDB); raw != "" {
			db, err := strconv.Atoi(raw)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s value %q: %w", EnvRedisDB, raw, err)
			}
			cfg.Infer.Cache.RedisDB = db
		}
	}

	return cfg, nil
}
