package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultOutput is the name of the generated file in every package.
const DefaultOutput = "zz_generated.autoplugin.go"

var (
	// ErrInvalidOutput indicates [generate].output is not a plain .go file name.
	ErrInvalidOutput = errors.New("invalid [generate].output")
	// ErrInvalidJobs indicates a negative [generate].jobs.
	ErrInvalidJobs = errors.New("invalid [generate].jobs")
	// ErrInvalidUI indicates a [generate].ui other than auto, on or off.
	ErrInvalidUI = errors.New("invalid [generate].ui")
)

// Config is the decoded autoplugin.toml.
type Config struct {
	Generate GenerateConfig `toml:"generate"`
}

// GenerateConfig holds the [generate] table.
type GenerateConfig struct {
	Output        string        `toml:"output"`
	APIImport     string        `toml:"api_import"`
	MissingPlugin string        `toml:"missing_plugin"`
	Jobs          int           `toml:"jobs"`
	Cache         bool          `toml:"cache"`
	UI            string        `toml:"ui"`
	Exclude       ExcludeConfig `toml:"exclude"`
}

// ExcludeConfig lists directories the walk never enters.
type ExcludeConfig struct {
	Dirs []string `toml:"dirs"`
}

// Manifest is a loaded configuration together with where it came from.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// DefaultConfig returns the values used when no autoplugin.toml exists.
func DefaultConfig() Config {
	return Config{Generate: GenerateConfig{
		Output:        DefaultOutput,
		APIImport:     "autoplugin/api",
		MissingPlugin: "warning",
		UI:            "auto",
		Exclude:       ExcludeConfig{Dirs: []string{"testdata", "vendor"}},
	}}
}

// LoadConfig decodes path on top of DefaultConfig. Keys absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("generate", "output") {
		out := strings.TrimSpace(cfg.Generate.Output)
		if out == "" || filepath.Base(out) != out || filepath.Ext(out) != ".go" {
			return Config{}, fmt.Errorf("%s: %w: %q must be a .go file name", path, ErrInvalidOutput, cfg.Generate.Output)
		}
		cfg.Generate.Output = out
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Generate.UI)) {
	case "auto", "on", "off":
	default:
		return Config{}, fmt.Errorf("%s: %w: %q (want auto, on or off)", path, ErrInvalidUI, cfg.Generate.UI)
	}
	if cfg.Generate.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: %w: %d", path, ErrInvalidJobs, cfg.Generate.Jobs)
	}
	return cfg, nil
}

// LoadManifest finds and loads autoplugin.toml above startDir. When none
// exists the defaults are returned with ok false.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	configPath, ok, err := FindConfig(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &Manifest{Config: DefaultConfig()}, false, nil
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   configPath,
		Root:   filepath.Dir(configPath),
		Config: cfg,
	}, true, nil
}

// WriteDefault creates dir/autoplugin.toml with the default values. It
// refuses to overwrite an existing file.
func WriteDefault(dir string) (string, error) {
	path := filepath.Join(dir, ConfigFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	enc := toml.NewEncoder(f)
	enc.Indent = ""
	if err := enc.Encode(DefaultConfig()); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// Excluded reports whether a directory named name is skipped by the walk.
func (c ExcludeConfig) Excluded(name string) bool {
	for _, d := range c.Dirs {
		if d == name {
			return true
		}
	}
	return false
}
