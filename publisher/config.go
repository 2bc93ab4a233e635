package publisher

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MaxRetriesLimit bounds generation.max_retries.
const MaxRetriesLimit = 30

// DefaultAPIKeyEnv is the environment variable consulted when llm.api_key is empty.
const DefaultAPIKeyEnv = "api_key_gemini"

// Config 是整个生成流程的配置，来自 config.json、环境变量和命令行。
type Config struct {
	LLM        *LLMConfig       `mapstructure:"llm"`
	ServerAddr string           `mapstructure:"server_addr"`
	Generation GenerationConfig `mapstructure:"generation"`
	Output     OutputConfig     `mapstructure:"output"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	BaseURL   string `mapstructure:"base_url"`
	// RequestsPerMinute paces model calls; 0 disables pacing.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
}

// GenerationConfig 控制累积流程。
type GenerationConfig struct {
	Languages        []string      `mapstructure:"languages"`
	Mode             string        `mapstructure:"mode"`
	MinSamples       int           `mapstructure:"min_samples"`
	SentencesPerCall int           `mapstructure:"sentences_per_call"`
	MaxRetries       int           `mapstructure:"max_retries"`
	// BaseDelay is a duration string ("4s").
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	GroupSize        int           `mapstructure:"group_size"`
	MinLength        int           `mapstructure:"min_length"`
	MaxBatches       int           `mapstructure:"max_batches"`
	Topics           []string      `mapstructure:"topics"`
	Seed             uint64        `mapstructure:"seed"`
	Dedupe           bool          `mapstructure:"dedupe"`
}

// OutputConfig describes where and how finished datasets are written.
type OutputConfig struct {
	// Path may contain {lang}, replaced by the language code.
	Path           string `mapstructure:"path"`
	Delimiter      string `mapstructure:"delimiter"`
	SolvedConflict bool   `mapstructure:"solved_conflict"`
	MergeWith      string `mapstructure:"merge_with"`
	MergeOutput    string `mapstructure:"merge_output"`
	Report         bool   `mapstructure:"report"`
	HTML           bool   `mapstructure:"html"`
	HistoryPath    string `mapstructure:"history_path"`
	DropSeen       bool   `mapstructure:"drop_seen"`
}

// PathFor returns the output path for a language.
func (o OutputConfig) PathFor(lang string) string {
	return strings.ReplaceAll(o.Path, "{lang}", lang)
}

// MergePath returns where the combined dataset for lang goes; empty when
// merging is off. MergeOutput may contain {lang}.
func (o OutputConfig) MergePath(lang string) string {
	if o.MergeWith == "" {
		return ""
	}
	if o.MergeOutput != "" {
		return strings.ReplaceAll(o.MergeOutput, "{lang}", lang)
	}
	return filepath.Join(filepath.Dir(o.PathFor(lang)), "combined_data_"+lang+filepath.Ext(o.MergeWith))
}

// LoadEnv loads a .env file from the working directory if one exists.
func LoadEnv(logger *log.Logger) {
	if err := godotenv.Load(); err != nil && logger != nil {
		logger.Printf("[INFO] no .env file loaded: %v", err)
	}
}

// LoadConfig reads the JSON config at path (a missing file means defaults) and
// applies DATAGEN_* environment overrides.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	v.SetEnvPrefix("DATAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	g := c.Generation
	switch g.Mode {
	case "enhanced", "random", "promptset":
	default:
		return fmt.Errorf("generation.mode %q not supported", g.Mode)
	}
	if g.MinSamples <= 0 {
		return errors.New("generation.min_samples must be positive")
	}
	if g.MaxRetries <= 0 || g.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("generation.max_retries must be between 1 and %d", MaxRetriesLimit)
	}
	// a bare JSON number decodes as nanoseconds
	if g.BaseDelay < time.Millisecond {
		return fmt.Errorf("generation.base_delay %v is below 1ms; use a duration string such as \"4s\"", g.BaseDelay)
	}
	if len(g.Languages) == 0 {
		return errors.New("generation.languages must not be empty")
	}
	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}
	if _, err := DelimiterFor(c.Output.Path, c.Output.Delimiter); err != nil {
		return err
	}
	return nil
}

// ResolveAPIKey returns llm.api_key, falling back to the environment variable
// named by llm.api_key_env.
func (c Config) ResolveAPIKey() string {
	if c.LLM == nil {
		return ""
	}
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	name := c.LLM.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	return os.Getenv(name)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8080")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", DefaultAPIKeyEnv)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.requests_per_minute", 0)

	v.SetDefault("generation.languages", []string{"ar", "bg"})
	v.SetDefault("generation.mode", "enhanced")
	v.SetDefault("generation.min_samples", 250)
	v.SetDefault("generation.sentences_per_call", 50)
	v.SetDefault("generation.max_retries", 5)
	v.SetDefault("generation.base_delay", "4s")
	v.SetDefault("generation.group_size", 4)
	v.SetDefault("generation.min_length", 10)
	v.SetDefault("generation.max_batches", 100)
	v.SetDefault("generation.topics", []string{})
	v.SetDefault("generation.seed", 0)
	v.SetDefault("generation.dedupe", false)

	v.SetDefault("output.path", "data/{lang}_generated.tsv")
	v.SetDefault("output.delimiter", "")
	v.SetDefault("output.solved_conflict", false)
	v.SetDefault("output.merge_with", "")
	v.SetDefault("output.merge_output", "")
	v.SetDefault("output.report", true)
	v.SetDefault("output.html", false)
	v.SetDefault("output.history_path", "")
	v.SetDefault("output.drop_seen", false)
}
