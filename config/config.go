// Package config loads experiment and worker settings from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/pkg/logging"
	"github.com/snow-ghost/wolfpack/pkg/tracing"
	"github.com/snow-ghost/wolfpack/problems"
	"gopkg.in/yaml.v3"
)

// Config holds one experiment plus the ambient settings of the binaries.
type Config struct {
	Problem   problems.Spec   `yaml:"problem"`
	Algorithm string          `yaml:"algorithm"`
	Optimizer OptimizerConfig `yaml:"optimizer"`

	Runs          int    `yaml:"runs"`
	Parallelism   int    `yaml:"parallelism"`
	ILSIterations int    `yaml:"ils_iterations"`
	CacheSize     int    `yaml:"cache_size"`
	OutputDir     string `yaml:"output_dir"`
	StorePath     string `yaml:"store_path"`

	Logging logging.Config `yaml:"logging"`
	Tracing tracing.Config `yaml:"tracing"`
	Worker  WorkerConfig   `yaml:"worker"`
}

// OptimizerConfig holds the optimizer parameters that do not depend on the
// problem.
type OptimizerConfig struct {
	Population      int     `yaml:"population"`
	Generations     int     `yaml:"generations"`
	MutationRate    float64 `yaml:"mutation_rate"`
	Seed            uint64  `yaml:"seed"`
	LogEvery        int     `yaml:"log_every"`
	CheckpointEvery int     `yaml:"checkpoint_every"`
}

// WorkerConfig holds the HTTP worker settings.
type WorkerConfig struct {
	Port       string        `yaml:"port"`
	RateLimit  float64       `yaml:"rate_limit"`
	Burst      int           `yaml:"burst"`
	JobTimeout time.Duration `yaml:"job_timeout"`
	// MaxEvaluations caps population * (generations + 1) per job; 0 is
	// unlimited.
	MaxEvaluations int `yaml:"max_evaluations"`
	// AllowProblems restricts the problems jobs may name; empty allows all.
	AllowProblems []string `yaml:"allow_problems"`
}

// Default returns the WSN experiment: 20 wolves, 50 generations, mutation
// rate 0.1, seed 42.
func Default() *Config {
	return &Config{
		Problem:   problems.DefaultSpec(),
		Algorithm: optimizer.AlgorithmHybrid,
		Optimizer: OptimizerConfig{
			Population:   20,
			Generations:  50,
			MutationRate: 0.1,
			Seed:         42,
			LogEvery:     optimizer.DefaultLogEvery,
		},
		Runs:          1,
		ILSIterations: 50,
		OutputDir:     "results",
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: tracing.Config{
			ServiceName: "wolfpack",
			Environment: "development",
		},
		Worker: WorkerConfig{
			Port:           "8081",
			RateLimit:      5,
			Burst:          10,
			JobTimeout:     30 * time.Second,
			MaxEvaluations: 1_000_000,
		},
	}
}

// DefaultJCAS returns the beamforming experiment: 30 wolves, 100
// generations.
func DefaultJCAS() *Config {
	c := Default()
	c.Problem.Name = problems.JCAS
	c.Optimizer.Population = 30
	c.Optimizer.Generations = 100
	return c
}

// Load reads path over base (Default when nil), applies environment
// overrides and validates. An empty path skips the file.
func Load(path string, base *Config) (*Config, error) {
	c := base
	if c == nil {
		c = Default()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv() {
	c.Problem.Name = getEnv("WOLFPACK_PROBLEM", c.Problem.Name)
	c.Algorithm = getEnv("WOLFPACK_ALGORITHM", c.Algorithm)
	c.Optimizer.Seed = getEnvUint("WOLFPACK_SEED", c.Optimizer.Seed)
	c.Optimizer.Population = getEnvInt("WOLFPACK_POPULATION", c.Optimizer.Population)
	c.Optimizer.Generations = getEnvInt("WOLFPACK_GENERATIONS", c.Optimizer.Generations)
	c.Optimizer.MutationRate = getEnvFloat("WOLFPACK_MUTATION_RATE", c.Optimizer.MutationRate)
	c.Runs = getEnvInt("WOLFPACK_RUNS", c.Runs)
	c.OutputDir = getEnv("WOLFPACK_OUTPUT_DIR", c.OutputDir)
	c.StorePath = getEnv("STORE_PATH", c.StorePath)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Tracing.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", c.Tracing.JaegerEndpoint)
	c.Worker.Port = getEnv("WORKER_PORT", c.Worker.Port)
	c.Worker.RateLimit = getEnvFloat("WORKER_RATE_LIMIT", c.Worker.RateLimit)
	c.Worker.JobTimeout = getEnvDuration("JOB_TIMEOUT", c.Worker.JobTimeout)
	if v := os.Getenv("WORKER_ALLOW_PROBLEMS"); v != "" {
		c.Worker.AllowProblems = parseCommaSeparated(v)
	}
}

// Validate checks names and counts; numeric optimizer constraints are
// checked again by optimizer.Config.Validate.
func (c *Config) Validate() error {
	if !slices.Contains(problems.Names(), c.Problem.Name) {
		return fmt.Errorf("%w: unknown problem %q", core.ErrInvalidConfiguration, c.Problem.Name)
	}
	if c.Algorithm != "" && !slices.Contains(optimizer.Algorithms(), c.Algorithm) {
		return fmt.Errorf("%w: unknown algorithm %q", core.ErrInvalidConfiguration, c.Algorithm)
	}
	if c.Optimizer.Population < optimizer.MinPopulation {
		return fmt.Errorf("%w: population %d < %d", core.ErrInvalidConfiguration, c.Optimizer.Population, optimizer.MinPopulation)
	}
	if c.Optimizer.Generations < 1 {
		return fmt.Errorf("%w: generations %d < 1", core.ErrInvalidConfiguration, c.Optimizer.Generations)
	}
	if c.Runs < 1 {
		return fmt.Errorf("%w: runs %d < 1", core.ErrInvalidConfiguration, c.Runs)
	}
	return nil
}

// OptimizerConfig combines the optimizer settings with a built problem.
func (c *Config) OptimizerConfig(p *problems.Instance) optimizer.Config {
	return optimizer.Config{
		Dimension:      p.Dimension,
		PopulationSize: c.Optimizer.Population,
		Generations:    c.Optimizer.Generations,
		Bounds:         p.Bounds,
		MutationRate:   c.Optimizer.MutationRate,
		Direction:      p.Direction,
		Seed:           c.Optimizer.Seed,
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
