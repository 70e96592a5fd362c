package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ExperimentConfig struct {
	Name         string         `yaml:"name"`
	InstancePath string         `yaml:"instance"`
	SolutionPath string         `yaml:"solution"`
	ReportPath   string         `yaml:"report"`
	Training     TrainingConfig `yaml:"training"`
}

type TrainingConfig struct {
	Episodes         int     `yaml:"episodes"`
	LearningRate     float64 `yaml:"learning_rate"`
	DiscountFactor   float64 `yaml:"discount_factor"`
	Epsilon          float64 `yaml:"epsilon"`
	EpsilonDecay     float64 `yaml:"epsilon_decay"`
	EpsilonMin       float64 `yaml:"epsilon_min"`
	ProgressInterval int     `yaml:"progress_interval"`
	Seed             int64   `yaml:"seed"`
}

// DefaultConfig returns the hyper-parameters used when no config file or
// flag overrides them
func DefaultConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Name: "cvrp-qlearning",
		Training: TrainingConfig{
			Episodes:         500,
			LearningRate:     0.1,
			DiscountFactor:   0.95,
			Epsilon:          1.0,
			EpsilonDecay:     0.995,
			EpsilonMin:       0.01,
			ProgressInterval: 50,
		},
	}
}

// LoadConfig reads a YAML experiment config. Fields absent from the file
// keep their defaults.
func LoadConfig(path string) (*ExperimentConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
