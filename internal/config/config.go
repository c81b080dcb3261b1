// Package config loads the bucket-check configuration: built-in defaults,
// an optional YAML file, then environment overrides. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the repository root when no
// explicit path is given.
const DefaultFile = ".bucket-check.yaml"

// Validation pass names, in execution order.
const (
	PassStructure       = "structure"
	PassMainProject     = "main-project"
	PassPackageManagers = "package-managers"
	PassManifest        = "manifest"
)

// Passes lists every pass in the order the runner executes them.
var Passes = []string{PassStructure, PassMainProject, PassPackageManagers, PassManifest}

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Report formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatGitHub = "github"
)

// Config holds all bucket-check settings.
type Config struct {
	Root         string   `yaml:"root"`
	ManifestGlob string   `yaml:"manifest_glob"`
	Color        string   `yaml:"color"`
	CI           bool     `yaml:"ci"`
	Format       string   `yaml:"format"`
	Strict       bool     `yaml:"strict"`
	Only         []string `yaml:"only"`
	UseGitignore bool     `yaml:"use_gitignore"`
	Exclude      []string `yaml:"exclude"`

	Rules Rules `yaml:"rules"`

	formatSet bool
}

// Rules are the tables the validation passes check against.
type Rules struct {
	RequiredPaths       []string            `yaml:"required_paths"`
	MainProjectPaths    []string            `yaml:"main_project_paths"`
	PackageManagerPaths map[string][]string `yaml:"package_manager_paths"`
	RequiredFields      []string            `yaml:"required_fields"`
	RecommendedFields   []string            `yaml:"recommended_fields"`
	RequiredDepends     []string            `yaml:"required_depends"`
	CheckFormat         bool                `yaml:"check_format"`
	Indent              string              `yaml:"indent"`
}

// LookupFunc resolves an environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Root:         ".",
		ManifestGlob: "bucket/*.json",
		Color:        ColorAuto,
		Format:       FormatText,
		UseGitignore: true,
		Exclude:      []string{".git"},
		Rules: Rules{
			RequiredPaths: []string{"bucket", "README.md"},
			MainProjectPaths: []string{
				"setup.py",
				"setup.cfg",
				"pyproject.toml",
				"requirements*.txt",
				"Pipfile",
				"Pipfile.lock",
				"poetry.lock",
				"tox.ini",
				"MANIFEST.in",
				"src/**",
				"tests/**",
				"**/*.py",
				"**/__pycache__",
				"*.egg-info",
				"dist/**",
				"build/**",
			},
			PackageManagerPaths: map[string][]string{
				"homebrew": {"Formula/**", "Casks/**", "**/*.rb", "Brewfile"},
				"vscode": {
					"package.json",
					"package-lock.json",
					".vscodeignore",
					"**/*.vsix",
					"vsc-extension-quickstart.md",
					".vscode-test/**",
					"node_modules/**",
				},
			},
			RequiredFields:    []string{"version", "description", "homepage", "license"},
			RecommendedFields: []string{"checkver", "autoupdate", "bin"},
			RequiredDepends:   []string{"python"},
			CheckFormat:       true,
			Indent:            "    ",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path means DefaultFile inside the root; that file
// may be absent. An explicit path must exist.
func Load(path string, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()
	if v, ok := lookup("BUCKET_CHECK_ROOT"); ok && strings.TrimSpace(v) != "" {
		cfg.Root = strings.TrimSpace(v)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Root, DefaultFile)
	}
	if err := cfg.mergeFile(path); err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
		return nil, err
	}

	cfg.applyEnv(lookup)
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var probe struct {
		Format string `yaml:"format"`
		Rules  struct {
			PackageManagerPaths map[string][]string `yaml:"package_manager_paths"`
		} `yaml:"rules"`
	}
	if err := yaml.Unmarshal(b, &probe); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	// a file that lists ecosystems replaces the default set
	if probe.Rules.PackageManagerPaths != nil {
		c.Rules.PackageManagerPaths = nil
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if probe.Format != "" {
		c.formatSet = true
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) {
	if v, ok := lookup("BUCKET_CHECK_FORMAT"); ok && strings.TrimSpace(v) != "" {
		c.SetFormat(strings.TrimSpace(v))
	}
	if _, ok := lookup("NO_COLOR"); ok {
		c.Color = ColorNever
	}
	if isTruthy(lookup, "CI") {
		c.CI = true
	}
	if isTruthy(lookup, "GITHUB_ACTIONS") {
		c.CI = true
		if !c.formatSet {
			c.Format = FormatGitHub
		}
	}
}

// SetFormat records an explicit format choice; it takes precedence over the
// format implied by GitHub Actions.
func (c *Config) SetFormat(f string) {
	c.Format = f
	c.formatSet = true
}

// ColorEnabled resolves the color mode against CI and the caller's TTY state.
func (c *Config) ColorEnabled(tty bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return tty && !c.CI
	}
}

// PassEnabled reports whether the named pass should run.
func (c *Config) PassEnabled(name string) bool {
	if len(c.Only) == 0 {
		return true
	}
	for _, p := range c.Only {
		if p == name {
			return true
		}
	}
	return false
}

// Validate checks enumerations and patterns, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("color: unknown mode %q (want auto, always or never)", c.Color))
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatGitHub:
	default:
		errs = append(errs, fmt.Errorf("format: unknown format %q (want text, json or github)", c.Format))
	}
	for _, p := range c.Only {
		if !knownPass(p) {
			errs = append(errs, fmt.Errorf("only: unknown pass %q", p))
		}
	}
	if strings.TrimSpace(c.ManifestGlob) == "" {
		errs = append(errs, errors.New("manifest_glob must be non-empty"))
	} else if !doublestar.ValidatePattern(c.ManifestGlob) {
		errs = append(errs, fmt.Errorf("manifest_glob: invalid pattern %q", c.ManifestGlob))
	}
	for _, p := range c.Rules.MainProjectPaths {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("rules.main_project_paths: invalid pattern %q", p))
		}
	}
	for _, eco := range c.Ecosystems() {
		for _, p := range c.Rules.PackageManagerPaths[eco] {
			if !doublestar.ValidatePattern(p) {
				errs = append(errs, fmt.Errorf("rules.package_manager_paths.%s: invalid pattern %q", eco, p))
			}
		}
	}
	return errors.Join(errs...)
}

// Ecosystems returns the configured package-manager names in sorted order.
func (c *Config) Ecosystems() []string {
	out := make([]string, 0, len(c.Rules.PackageManagerPaths))
	for k := range c.Rules.PackageManagerPaths {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func knownPass(name string) bool {
	for _, p := range Passes {
		if p == name {
			return true
		}
	}
	return false
}

func isTruthy(lookup LookupFunc, key string) bool {
	v, ok := lookup(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
