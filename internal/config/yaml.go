package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ReadFile loads a YAML configuration file into v. Environment variables
// referenced as ${VAR_NAME} in the file are expanded before parsing, so
// secrets can stay out of the file itself.
func ReadFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML. Durations are written in their string form
// ("30s") so the output reads back through viper unchanged.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := Marshal(Default())
	if err != nil {
		return err
	}
	header := []byte("# Dandi configuration\n# Every key can be overridden with a DANDI_ environment variable,\n# e.g. DANDI_LLM_OPENAI_API_KEY or DANDI_DATABASE_DSN.\n\n")
	return os.WriteFile(path, append(header, data...), 0644)
}
