package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	PublicURL string `env:"PUBLIC_URL"`

	ImageProvider string `env:"IMAGE_PROVIDER" envDefault:"google"`
	ImageModel    string `env:"IMAGE_MODEL" envDefault:"imagen-3.0-generate-002"`
	GoogleAPIKey  string `env:"GOOGLE_API_KEY"`
	GoogleBaseURL string `env:"GOOGLE_BASE_URL"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	ExportEnabled bool   `env:"EXPORT_ENABLED" envDefault:"true"`
	ExportFile    string `env:"EXPORT_FILE" envDefault:"./picprompt-results.txt"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
