// Package config provides unified configuration loading for cantina.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cantina/internal/catalog"
	"cantina/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all cantina configuration settings.
type Config struct {
	// Catalog maps spreadsheet column headers onto catalog roles.
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Store contains settings for the local catalog database.
	Store StoreConfig `json:"store" yaml:"store"`

	// Suggest contains settings for description suggestion ranking.
	Suggest SuggestConfig `json:"suggest" yaml:"suggest"`

	// Dedup contains settings for duplicate row detection.
	Dedup DedupConfig `json:"dedup" yaml:"dedup"`

	// Logging contains settings for operational and change logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// CatalogConfig describes the shape of the catalog being edited.
type CatalogConfig struct {
	// Columns names the headers that carry the fixed catalog roles.
	Columns ColumnsConfig `json:"columns" yaml:"columns"`

	// SelectFields are additional columns edited via constrained value
	// lists, in display order.
	SelectFields []string `json:"select_fields" yaml:"select_fields"`

	// CopyFields are the columns copied when prefilling a row from a
	// similar one.
	CopyFields []string `json:"copy_fields" yaml:"copy_fields"`
}

// ColumnsConfig names the catalog columns holding each fixed role.
// Key and Description are required; the rest are optional.
type ColumnsConfig struct {
	// Key is the unique article code column.
	Key string `json:"key" yaml:"key"`

	// Description is the raw article description column.
	Description string `json:"description" yaml:"description"`

	// Refined is the column holding the edited description.
	Refined string `json:"refined,omitempty" yaml:"refined,omitempty"`

	// Previous holds the description prior to the last edit.
	Previous string `json:"previous,omitempty" yaml:"previous,omitempty"`

	// Modified is the flag column marking edited rows.
	Modified string `json:"modified,omitempty" yaml:"modified,omitempty"`

	// ImageURL is the article image link column.
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// StoreConfig configures the local catalog database.
type StoreConfig struct {
	// Path overrides the database file location. Supports ${VAR} syntax
	// for env vars. Empty means <root>/.cantina/catalog.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// SuggestConfig configures description suggestion ranking.
type SuggestConfig struct {
	// Limit is the maximum number of suggestions returned per row.
	Limit int `json:"limit" yaml:"limit"`

	// MinScore is the minimum similarity score for a suggestion.
	// Range: 0.0 to 1.0
	MinScore float64 `json:"min_score" yaml:"min_score"`
}

// DedupConfig configures duplicate row detection.
type DedupConfig struct {
	// Threshold is the minimum similarity score for reporting a pair of
	// rows as duplicates. Range: above 0.0, up to 1.0
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// LoggingConfig configures cantina's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`

	// Changes enables the append-only change log at .cantina/changes.jsonl.
	Changes bool `json:"changes" yaml:"changes"`
}

// Default returns a Config with sensible defaults. The column names match
// the wine catalog layout this tool grew up around.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Columns: ColumnsConfig{
				Key:         "art_kart",
				Description: "art_desart",
				Refined:     "DescrizioneAffinata",
				Previous:    "art_desart_precedente",
				Modified:    "Mod?",
				ImageURL:    "URL_immagine",
			},
			SelectFields: []string{"Azienda", "Prodotto", "gradazione", "annata", "Packaging", "Note"},
			CopyFields:   []string{"Azienda", "Prodotto", "gradazione", "annata", "Packaging", "Note", "URL_immagine"},
		},
		Suggest: SuggestConfig{
			Limit:    constants.DefaultSuggestionLimit,
			MinScore: constants.DefaultMinScore,
		},
		Dedup: DedupConfig{
			Threshold: constants.DefaultDuplicateThreshold,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Changes: true,
		},
	}
}

// Load loads configuration for a catalog root directory.
// Order: defaults -> <root>/.cantina/config.yaml -> environment variables
func Load(root string) (*Config, error) {
	config := Default()

	configPath := filepath.Join(root, ".cantina", "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(configPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in the database path
	config.Store.Path = expandEnvVars(config.Store.Path)

	return config, nil
}

// Schema builds the catalog schema described by this configuration.
func (c *Config) Schema() catalog.Schema {
	return catalog.Schema{
		KeyColumn:         c.Catalog.Columns.Key,
		DescriptionColumn: c.Catalog.Columns.Description,
		RefinedColumn:     c.Catalog.Columns.Refined,
		PreviousColumn:    c.Catalog.Columns.Previous,
		ModifiedColumn:    c.Catalog.Columns.Modified,
		ImageURLColumn:    c.Catalog.Columns.ImageURL,
		SelectFields:      append([]string(nil), c.Catalog.SelectFields...),
		CopyFields:        append([]string(nil), c.Catalog.CopyFields...),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Schema().Validate(); err != nil {
		return fmt.Errorf("catalog columns: %w", err)
	}

	if c.Suggest.Limit <= 0 {
		return fmt.Errorf("suggest limit must be positive, got %d", c.Suggest.Limit)
	}

	if c.Suggest.MinScore < 0 || c.Suggest.MinScore > 1 {
		return fmt.Errorf("suggest min_score must be between 0 and 1, got %f", c.Suggest.MinScore)
	}

	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		return fmt.Errorf("dedup threshold must be above 0 and at most 1, got %f", c.Dedup.Threshold)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CANTINA_DB_PATH"); v != "" {
		config.Store.Path = expandEnvVars(v)
	}

	if v := os.Getenv("CANTINA_SUGGEST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Suggest.Limit = n
		}
	}

	if v := os.Getenv("CANTINA_SUGGEST_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Suggest.MinScore = f
		}
	}

	if v := os.Getenv("CANTINA_DEDUP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Dedup.Threshold = f
		}
	}

	if v := os.Getenv("CANTINA_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("CANTINA_LOG_CHANGES"); v != "" {
		config.Logging.Changes = v == "true" || v == "1"
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
