package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

type Config struct {
	Port          string
	DBUrl         string
	DBApiKey      string
	OAIApiKey     string
	GeminiApiKey  string
	LLMProvider   string
	LLMModel      string
	ScoringUrl    string
	PHApiKey      string
	OracleRPS     float64
	GenerationLog string
	MaxRunAge     time.Duration
	Optimizer     domain.OptimizerConfig
}

// LoadOptimizerConfig overlays the YAML file at path onto base. Keys missing
// from the file keep their base value.
func LoadOptimizerConfig(path string, base domain.OptimizerConfig) (domain.OptimizerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading optimizer config: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parsing optimizer config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}

	return cfg, nil
}
