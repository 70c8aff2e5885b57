// Package config parses revise.toml configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load.
const FileName = "revise.toml"

// languageRe matches a language directory name like "EN" or "de_AT".
var languageRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// sortKeys are the accepted values for efc.sort_primary / efc.sort_secondary.
var sortKeys = map[string]bool{"filepath": true, "label": true, "score": true, "initial": true}

// Config is the top-level revise.toml configuration.
type Config struct {
	Data       DataConfig        `toml:"data"`
	EFC        EFCConfig         `toml:"efc"`
	Mistakes   MistakesConfig    `toml:"mistakes"`
	Signatures map[string]string `toml:"signatures"` // language -> custom naming pattern
	Log        LogConfig         `toml:"log"`
	Watch      WatchConfig       `toml:"watch"`

	// dir is the directory holding the loaded file; relative paths resolve against it.
	dir string
}

// DataConfig locates the datasets and the review ledger.
type DataConfig struct {
	Root         string   `toml:"root"`
	Languages    []string `toml:"languages"`
	LockPrefixes []string `toml:"lock_prefixes"`
	RevisionExt  string   `toml:"revision_ext"`
	LedgerFile   string   `toml:"ledger_file"` // empty = {root}/ledger.csv
}

// EFCConfig controls the forgetting-curve scheduler.
type EFCConfig struct {
	Threshold        float64 `toml:"threshold"`
	InitRevsCnt      int     `toml:"init_revs_cnt"`
	InitRevsInth     float64 `toml:"init_revs_inth"`
	DaysToNewRev     float64 `toml:"days_to_new_rev"`
	CacheExpiryHours float64 `toml:"cache_expiry_hours"`
	ModelPath        string  `toml:"model_path"` // empty = built-in decay curve
	SortPrimary      string  `toml:"sort_primary"`
	SortSecondary    string  `toml:"sort_secondary"`

	ResolutionHours float64 `toml:"predict_resolution_hours"`
	MaxIterations   int     `toml:"predict_max_iterations"`
	ShrinkFactor    float64 `toml:"predict_shrink_factor"`
	Tolerance       float64 `toml:"predict_tolerance"`
}

// MistakesConfig bounds the mistakes shard ring.
type MistakesConfig struct {
	PartSize  int `toml:"part_size"`
	PartCnt   int `toml:"part_cnt"`
	ReviewMin int `toml:"review_min"` // accumulated mistakes that justify an ephemeral pass; 0 = off
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WatchConfig controls the background change watcher.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Data.Root == "" {
		errs = append(errs, fmt.Errorf("data.root must not be empty"))
	}
	if len(c.Data.Languages) == 0 {
		errs = append(errs, fmt.Errorf("data.languages must list at least one language"))
	}
	for _, lng := range c.Data.Languages {
		if !languageRe.MatchString(lng) {
			errs = append(errs, fmt.Errorf("data.languages: %q is not a valid directory name", lng))
		}
	}
	switch c.Data.RevisionExt {
	case "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("data.revision_ext must be \"csv\" or \"xlsx\""))
	}

	if c.EFC.Threshold < 0 || c.EFC.Threshold > 100 {
		errs = append(errs, fmt.Errorf("efc.threshold must be within [0, 100]"))
	}
	if c.EFC.InitRevsCnt < 0 {
		errs = append(errs, fmt.Errorf("efc.init_revs_cnt must be >= 0"))
	}
	if c.EFC.InitRevsInth < 0 {
		errs = append(errs, fmt.Errorf("efc.init_revs_inth must be >= 0"))
	}
	if c.EFC.DaysToNewRev < 0 {
		errs = append(errs, fmt.Errorf("efc.days_to_new_rev must be >= 0"))
	}
	if c.EFC.CacheExpiryHours < 0 {
		errs = append(errs, fmt.Errorf("efc.cache_expiry_hours must be >= 0 (0 = no caching)"))
	}
	if !sortKeys[c.EFC.SortPrimary] {
		errs = append(errs, fmt.Errorf("efc.sort_primary must be one of filepath, label, score, initial"))
	}
	if !sortKeys[c.EFC.SortSecondary] {
		errs = append(errs, fmt.Errorf("efc.sort_secondary must be one of filepath, label, score, initial"))
	}
	if c.EFC.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("efc.predict_max_iterations must be > 0"))
	}
	if c.EFC.ShrinkFactor <= 1 {
		errs = append(errs, fmt.Errorf("efc.predict_shrink_factor must be > 1"))
	}
	if c.EFC.ResolutionHours <= 0 {
		errs = append(errs, fmt.Errorf("efc.predict_resolution_hours must be > 0"))
	}
	if c.EFC.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("efc.predict_tolerance must be >= 0"))
	}

	if c.Mistakes.PartSize <= 0 {
		errs = append(errs, fmt.Errorf("mistakes.part_size must be > 0"))
	}
	if c.Mistakes.PartCnt <= 0 {
		errs = append(errs, fmt.Errorf("mistakes.part_cnt must be > 0"))
	}
	if c.Mistakes.ReviewMin < 0 {
		errs = append(errs, fmt.Errorf("mistakes.review_min must be >= 0 (0 = off)"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must be >= 0"))
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Data: DataConfig{
			Root:         "data",
			Languages:    []string{"EN"},
			LockPrefixes: []string{".~lock.", "~$"},
			RevisionExt:  "csv",
		},
		EFC: EFCConfig{
			Threshold:        50,
			InitRevsCnt:      3,
			InitRevsInth:     12,
			DaysToNewRev:     5,
			CacheExpiryHours: 1,
			SortPrimary:      "score",
			SortSecondary:    "filepath",
			ResolutionHours:  800,
			MaxIterations:    100,
			ShrinkFactor:     1.1,
			Tolerance:        0.01,
		},
		Mistakes: MistakesConfig{
			PartSize: 1000,
			PartCnt:  5,
		},
		Signatures: map[string]string{},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{DebounceMS: 500},
	}
}

// DataRoot returns data.root resolved against the config file's directory.
func (c *Config) DataRoot() string {
	return c.resolve(c.Data.Root)
}

// LedgerPath returns the review ledger location.
func (c *Config) LedgerPath() string {
	if c.Data.LedgerFile == "" {
		return filepath.Join(c.DataRoot(), "ledger.csv")
	}
	return c.resolve(c.Data.LedgerFile)
}

// ModelPath returns efc.model_path resolved, or "" when unset.
func (c *Config) ModelPath() string {
	if c.EFC.ModelPath == "" {
		return ""
	}
	return c.resolve(c.EFC.ModelPath)
}

// StatePath returns the runtime state file location.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataRoot(), ".revise", "state.toml")
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Load reads revise.toml from the given path. If path is empty, it walks up
// from the current working directory looking for revise.toml. Returns an error
// if the file contains unknown keys (likely typos) or fails validation.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	if cfg.Signatures == nil {
		cfg.Signatures = map[string]string{}
	}
	cfg.dir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// findConfig walks up from the current directory looking for revise.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("config: %s not found (searched up from %s)", FileName, dir)
		}
		dir = parent
	}
}

// InitFile writes a default revise.toml template to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: %s already exists at %s", FileName, path)
	}

	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}

const template = `# revise.toml - flashcard study configuration

[data]
root = "data"
languages = ["EN"]
lock_prefixes = [".~lock.", "~$"]
revision_ext = "csv"   # csv or xlsx
ledger_file = ""       # empty = {root}/ledger.csv

[efc]
threshold = 50.0        # retention (0-100) below which a revision is due
init_revs_cnt = 3       # repeats treated as the initial phase
init_revs_inth = 12.0   # hours a revision stays fresh during the initial phase
days_to_new_rev = 5.0   # suggest a new revision once the newest is this old
cache_expiry_hours = 1.0
model_path = ""         # YAML linear model; empty = built-in decay curve
sort_primary = "score"  # filepath, label, score, initial
sort_secondary = "filepath"
predict_resolution_hours = 800.0
predict_max_iterations = 100
predict_shrink_factor = 1.1
predict_tolerance = 0.01

[mistakes]
part_size = 1000  # rows per mistakes shard
part_cnt = 5      # shards kept per language
review_min = 0    # accumulated mistakes that suggest a dedicated pass; 0 = off

[signatures]
# EN = "EN"       # custom naming: EN1, EN2, ...

[log]
level = "info"
format = "text"

[watch]
debounce_ms = 500
`
