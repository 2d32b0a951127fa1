package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Extractor selector values for Processing.Extractor.
const (
	ExtractorLLM   = "llm"
	ExtractorRules = "rules"
)

// Duplicate handling values for Processing.OnDuplicate.
const (
	OnDuplicateRecord = "record"
	OnDuplicateSkip   = "skip"
)

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Matching contains patient reconciliation settings.
type Matching struct {
	// AutoMatch enables registry matching on the extracted name and, when
	// that fails, substring matching inside the document body.
	AutoMatch bool `toml:"auto_match"`
	// AutoCreate enables creating a new patient when no match is found.
	AutoCreate bool `toml:"auto_create"`
	// RouteUnmatchedToShared files unmatched documents under the shared
	// bucket instead of creating new patients.
	RouteUnmatchedToShared bool    `toml:"route_unmatched_to_shared"`
	FuzzyThreshold         float64 `toml:"fuzzy_threshold"`
}

// Processing contains pipeline behaviour switches.
type Processing struct {
	// Extractor selects the metadata extractor: "llm" or "rules".
	Extractor string `toml:"extractor"`
	// MoveOriginal moves instead of copying the source file into place.
	MoveOriginal bool `toml:"move_original"`
	DryRun       bool `toml:"dry_run"`
	// PreserveOnError copies failed files into the dead-letter folder under
	// the output root.
	PreserveOnError bool `toml:"preserve_on_error"`
	// OnDuplicate controls content-duplicate handling: "record" places the
	// file and records the repeat placement, "skip" leaves it untouched.
	OnDuplicate string `toml:"on_duplicate"`
	MaxFileMB   int64  `toml:"max_file_mb"`
}

// LLM contains OpenAI-compatible endpoint settings for the LLM extractor.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for CliniKondo.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Matching   Matching   `toml:"matching"`
	Processing Processing `toml:"processing"`
	LLM        LLM        `toml:"llm"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clinikondo/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clinikondo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// StateDir returns the hidden state directory under the output root that
// holds the patient store, the hash ledger, and the processing journal.
func (c *Config) StateDir() string {
	return filepath.Join(c.Paths.OutputDir, ".clinikondo")
}

// PatientsPath returns the location of the persisted patient store.
func (c *Config) PatientsPath() string {
	return filepath.Join(c.StateDir(), "patients.json")
}

// LedgerPath returns the location of the persisted hash ledger.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.StateDir(), "hashes.json")
}

// JournalPath returns the location of the sqlite processing journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir(), "journal.db")
}

// DeadLetterDir returns the folder receiving copies of failed files.
func (c *Config) DeadLetterDir() string {
	return filepath.Join(c.Paths.OutputDir, "falhas")
}

// MaxFileBytes returns the validation gate size ceiling in bytes.
func (c *Config) MaxFileBytes() int64 {
	return c.Processing.MaxFileMB * 1024 * 1024
}

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.StateDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified
// location, replacing any existing file. Refusing to clobber an
// existing config is the caller's decision.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
