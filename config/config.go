package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Speech     SpeechConfig     `yaml:"speech"`
	HTTP       HTTPConfig       `yaml:"http"`
	Locale     LocaleConfig     `yaml:"locale"`
	Log        LogConfig        `yaml:"log"`
}

type GenerationConfig struct {
	// Provider is gemini or anthropic.
	Provider string `yaml:"provider"`
}

type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"top_p"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	TTSModel string `yaml:"tts_model"`
	Voice    string `yaml:"voice"`
}

type SpeechConfig struct {
	// Capture is microphone, http, file or none.
	Capture    string `yaml:"capture"`
	FileDir    string `yaml:"file_dir"`
	SampleRate int    `yaml:"sample_rate"`
	// Synthesis is openai or none.
	Synthesis string `yaml:"synthesis"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is the number of generate requests per client per minute.
	RateLimit int `yaml:"rate_limit"`
}

type LocaleConfig struct {
	Default          string `yaml:"default"`
	TranslationsFile string `yaml:"translations_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse reads YAML config, expanding ${VAR} references from the environment.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Generation.Provider == "" {
		c.Generation.Provider = "gemini"
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Gemini.Temperature == 0 {
		c.Gemini.Temperature = 0.8
	}
	if c.Gemini.TopP == 0 {
		c.Gemini.TopP = 0.95
	}
	if c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Speech.Capture == "" {
		c.Speech.Capture = "http"
	}
	if c.Speech.FileDir == "" {
		c.Speech.FileDir = "./audio"
	}
	if c.Speech.SampleRate == 0 {
		c.Speech.SampleRate = 16000
	}
	if c.Speech.Synthesis == "" {
		c.Speech.Synthesis = "openai"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 10
	}
	if c.Locale.Default == "" {
		c.Locale.Default = "pt"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports configuration that makes generation impossible.
func (c *Config) Validate() error {
	switch c.Generation.Provider {
	case "gemini":
		if c.Gemini.APIKey == "" {
			return errors.New("gemini.api_key is required (or set GEMINI_API_KEY)")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return errors.New("anthropic.api_key is required (or set ANTHROPIC_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}

	switch c.Speech.Capture {
	case "microphone", "http", "file", "none":
	default:
		return fmt.Errorf("unknown speech capture %q", c.Speech.Capture)
	}
	switch c.Speech.Synthesis {
	case "openai", "none":
	default:
		return fmt.Errorf("unknown speech synthesis %q", c.Speech.Synthesis)
	}
	return nil
}
