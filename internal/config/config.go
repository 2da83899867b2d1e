package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/decoder/internal/classify"
	"github.com/abelbrown/decoder/internal/fusion"
	"github.com/abelbrown/decoder/internal/refine"
	"github.com/abelbrown/decoder/internal/risk"
)

// Config is the persistent application configuration
type Config struct {
	// Semantic refinement backend
	AI AIConfig `json:"ai"`

	// Multimodal fusion defaults
	Fusion FusionConfig `json:"fusion"`

	// Tier-1 and tier-3 settings
	Classifier ClassifierConfig `json:"classifier"`

	// Where data files live
	Paths PathsConfig `json:"paths"`

	// Risk word lists
	Risk RiskConfig `json:"risk"`
}

// AIConfig selects and tunes the refinement model
type AIConfig struct {
	Enabled        bool   `json:"enabled"`
	Provider       string `json:"provider"` // "openai" or "ollama"
	APIKey         string `json:"api_key,omitempty"`
	Endpoint       string `json:"endpoint,omitempty"` // For Ollama or custom endpoints
	Model          string `json:"model,omitempty"`    // Empty means provider default / auto-detect
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// FusionConfig holds fusion defaults
type FusionConfig struct {
	Strategy         string             `json:"strategy"`
	Weights          map[string]float64 `json:"weights"`
	HistoryTimeoutMs int                `json:"history_timeout_ms"`
}

// ClassifierConfig holds classification thresholds
type ClassifierConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	UseAIRefinement     bool    `json:"use_ai_refinement"`
	BatchConcurrency    int     `json:"batch_concurrency"`
}

// PathsConfig locates templates, keyword tables and the database. Empty
// Templates or Lexicon means the built-in defaults.
type PathsConfig struct {
	Templates string `json:"templates,omitempty"`
	Lexicon   string `json:"lexicon,omitempty"`
	Database  string `json:"database"`
	Logs      string `json:"logs"`
	Events    string `json:"events"`
}

// RiskConfig holds risk word lists. Empty lists mean the built-in ones.
type RiskConfig struct {
	HighWords        []string `json:"high_words,omitempty"`
	MediumWords      []string `json:"medium_words,omitempty"`
	AITimeoutSeconds int      `json:"ai_timeout_seconds"`
}

// DataDir is the root of everything the decoder writes
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".decoder")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		AI: AIConfig{
			Enabled:        false,
			Provider:       "openai",
			Model:          refine.DefaultOpenAIModel,
			TimeoutSeconds: 10,
		},
		Fusion: FusionConfig{
			Strategy: string(fusion.StrategyWeighted),
			Weights: map[string]float64{
				"text":  0.5,
				"voice": 0.3,
				"face":  0.2,
			},
			HistoryTimeoutMs: 2000,
		},
		Classifier: ClassifierConfig{
			ConfidenceThreshold: classify.DefaultThreshold,
			UseAIRefinement:     false,
			BatchConcurrency:    4,
		},
		Paths: PathsConfig{
			Database: filepath.Join(dir, "decoder.db"),
			Logs:     filepath.Join(dir, "logs"),
			Events:   filepath.Join(dir, "events.jsonl"),
		},
		Risk: RiskConfig{
			AITimeoutSeconds: 10,
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads config from ConfigPath, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path. Fields missing from the file keep their
// defaults; environment variables override both.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		// Corrupt file: start over from defaults
		cfg = DefaultConfig()
	}
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to ConfigPath
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for API keys
}

// AutoPopulateFromEnv applies environment overrides
func (c *Config) AutoPopulateFromEnv() {
	for _, key := range envKeys {
		if value := os.Getenv(key); value != "" {
			c.apply(key, value)
		}
	}
}

var envKeys = []string{
	"OLLAMA_HOST",
	"OPENAI_API_KEY",
	"DECODER_MODEL",
	"EMOTION_FUSION_STRATEGY",
	"EMOTION_FUSION_WEIGHT_TEXT",
	"EMOTION_FUSION_WEIGHT_VOICE",
	"EMOTION_FUSION_WEIGHT_FACE",
}

// apply sets one environment-style key. Unknown keys and unparsable values
// are ignored.
func (c *Config) apply(key, value string) {
	switch key {
	case "OPENAI_API_KEY":
		c.AI.APIKey = value
		c.AI.Provider = "openai"
		c.AI.Enabled = true
	case "OLLAMA_HOST":
		c.AI.Endpoint = value
		if c.AI.APIKey == "" {
			c.AI.Provider = "ollama"
			c.AI.Model = ""
		}
	case "DECODER_MODEL":
		c.AI.Model = value
	case "EMOTION_FUSION_STRATEGY":
		if s, ok := fusion.ParseStrategy(value); ok {
			c.Fusion.Strategy = string(s)
		}
	case "EMOTION_FUSION_WEIGHT_TEXT", "EMOTION_FUSION_WEIGHT_VOICE", "EMOTION_FUSION_WEIGHT_FACE":
		w, err := strconv.ParseFloat(value, 64)
		if err != nil || w < 0 {
			return
		}
		if c.Fusion.Weights == nil {
			c.Fusion.Weights = make(map[string]float64)
		}
		c.Fusion.Weights[strings.ToLower(strings.TrimPrefix(key, "EMOTION_FUSION_WEIGHT_"))] = w
	}
}

// LoadKeysFromFile loads settings from a shell script (like keys.sh)
func (c *Config) LoadKeysFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Simple parser for export KEY=value lines
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" || strings.HasPrefix(key, "#") {
			continue
		}
		c.apply(key, strings.Trim(value, `"'`))
	}

	return nil
}

// FusionWeights returns the configured default weight vector
func (c *Config) FusionWeights() fusion.Weights {
	w := make(fusion.Weights, len(c.Fusion.Weights))
	for k, v := range c.Fusion.Weights {
		w[fusion.Modality(k)] = v
	}
	return w
}

// FusionStrategy returns the configured default strategy, weighted if unset
// or unknown
func (c *Config) FusionStrategy() fusion.Strategy {
	if s, ok := fusion.ParseStrategy(c.Fusion.Strategy); ok {
		return s
	}
	return fusion.StrategyWeighted
}

// HistoryTimeout bounds the dynamic-weight history lookup
func (c *Config) HistoryTimeout() time.Duration {
	return time.Duration(c.Fusion.HistoryTimeoutMs) * time.Millisecond
}

// RefineTimeout bounds each tier-3 call
func (c *Config) RefineTimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// RiskWords returns the configured word lists
func (c *Config) RiskWords() risk.Words {
	return risk.Words{High: c.Risk.HighWords, Medium: c.Risk.MediumWords}
}
