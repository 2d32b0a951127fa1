package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"clinikondo/internal/config"
	"clinikondo/internal/doctype"
	"clinikondo/internal/extraction"
	"clinikondo/internal/hashledger"
	"clinikondo/internal/journal"
	"clinikondo/internal/logging"
	"clinikondo/internal/patients"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			OutputPaths: []string{
				"stderr",
				filepath.Join(cfg.Paths.LogDir, "clinikondo.log"),
			},
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openRegistry loads the patient store from the state directory.
func (c *commandContext) openRegistry() (*patients.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store := patients.NewFileStore(cfg.PatientsPath(), logger)
	return patients.NewRegistry(store, logger,
		patients.WithFuzzyThreshold(cfg.Matching.FuzzyThreshold))
}

func (c *commandContext) openLedger() (*hashledger.Ledger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return hashledger.Open(cfg.LedgerPath(), logger), nil
}

func (c *commandContext) openJournal() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return journal.Open(cfg.JournalPath())
}

// buildExtractor selects the extractor named in the configuration.
func (c *commandContext) buildExtractor(catalog *doctype.Catalog) (extraction.Extractor, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	switch cfg.Processing.Extractor {
	case config.ExtractorRules:
		return extraction.NewRuleBasedExtractor(catalog, logger), nil
	case config.ExtractorLLM:
		return extraction.NewLLMExtractor(extraction.LLMConfig{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown extractor %q", cfg.Processing.Extractor)
	}
}
