// Package config provides configuration loading for benchmark profiles
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mempool/pkg/errors"
)

// BenchProfile describes one benchmark workload run by cmd/mempool-bench.
type BenchProfile struct {
	// Name labels the profile in logs, metrics and reports.
	Name string `yaml:"name"`
	// ElementSize is the pool element size in bytes.
	ElementSize int `yaml:"element_size"`
	// ChunkCapacity is the number of element slots per chunk.
	ChunkCapacity int `yaml:"chunk_capacity"`
	// InitialCapacity is the creation-time element count hint.
	InitialCapacity int `yaml:"initial_capacity"`
	// Iterations is the number of alloc/free operations per workload.
	Iterations int `yaml:"iterations"`
	// Churn is the fraction of operations that free a live element,
	// in [0, 1). The remainder allocate.
	Churn float64 `yaml:"churn"`
	// SafeIteration enables the sentinel and iteration workloads.
	SafeIteration bool `yaml:"safe_iteration"`
}

// Validate checks the profile for usable values.
func (p *BenchProfile) Validate() error {
	if p.ElementSize <= 0 {
		return errors.New(errors.ErrorTypeValidation, "element_size must be positive").
			WithDetail("element_size", p.ElementSize)
	}
	if p.Iterations <= 0 {
		return errors.New(errors.ErrorTypeValidation, "iterations must be positive").
			WithDetail("iterations", p.Iterations)
	}
	if p.Churn < 0 || p.Churn >= 1 {
		return errors.New(errors.ErrorTypeValidation, "churn must be in [0, 1)").
			WithDetail("churn", p.Churn)
	}
	return nil
}

// ProfileFile is the on-disk shape of a benchmark profile file.
type ProfileFile struct {
	Profiles []BenchProfile `yaml:"profiles"`
}

// Load loads a configuration from a YAML file
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file")
	}

	// Substitute environment variables
	content := string(data)
	content = substituteEnvVars(content)

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}

	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file")
	}

	return nil
}

// LoadProfiles loads and validates a benchmark profile file.
func LoadProfiles(filePath string) ([]BenchProfile, error) {
	var f ProfileFile
	if err := Load(filePath, &f); err != nil {
		return nil, err
	}
	if len(f.Profiles) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "profile file contains no profiles").
			WithDetail("path", filePath)
	}
	for i := range f.Profiles {
		if err := f.Profiles[i].Validate(); err != nil {
			return nil, err
		}
	}
	return f.Profiles, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
