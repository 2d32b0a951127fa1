package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return errors.New("matching.fuzzy_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	switch c.Processing.Extractor {
	case ExtractorLLM, ExtractorRules:
	default:
		return fmt.Errorf("processing.extractor must be \"llm\" or \"rules\", got %q", c.Processing.Extractor)
	}
	switch c.Processing.OnDuplicate {
	case OnDuplicateRecord, OnDuplicateSkip:
	default:
		return fmt.Errorf("processing.on_duplicate must be \"record\" or \"skip\", got %q", c.Processing.OnDuplicate)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.Processing.Extractor != ExtractorLLM {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clinikondo/config.toml"
		}
		return fmt.Errorf("llm.api_key is required for the llm extractor. Set OPENAI_API_KEY or edit %s (create with 'clinikondo config init')", defaultPath)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}
