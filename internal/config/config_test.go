package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load("", envMap(map[string]string{"BUCKET_CHECK_ROOT": root}))
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "bucket/*.json", cfg.ManifestGlob)
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, ColorAuto, cfg.Color)
	assert.False(t, cfg.CI)
	assert.Contains(t, cfg.Rules.RequiredDepends, "python")
	assert.NoError(t, cfg.Validate())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadYAMLOverrides(t *testing.T) {
	root := t.TempDir()
	body := `
manifest_glob: "manifests/*.json"
strict: true
format: json
rules:
  required_paths: [manifests]
  required_depends: []
`
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte(body), 0o644))

	cfg, err := Load("", envMap(map[string]string{
		"BUCKET_CHECK_ROOT": root,
		"GITHUB_ACTIONS":    "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "manifests/*.json", cfg.ManifestGlob)
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.CI)
	assert.Equal(t, FormatJSON, cfg.Format, "explicit file format must win over GitHub Actions")
	assert.Equal(t, []string{"manifests"}, cfg.Rules.RequiredPaths)
	assert.Empty(t, cfg.Rules.RequiredDepends)
	// untouched keys keep their defaults
	assert.Equal(t, []string{"version", "description", "homepage", "license"}, cfg.Rules.RequiredFields)
}

func TestLoadPackageManagerPathsReplaceDefaults(t *testing.T) {
	root := t.TempDir()
	body := "rules:\n  package_manager_paths:\n    homebrew: [\"Formula/**\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte(body), 0o644))

	cfg, err := Load("", envMap(map[string]string{"BUCKET_CHECK_ROOT": root}))
	require.NoError(t, err)
	assert.Equal(t, []string{"homebrew"}, cfg.Ecosystems())
	assert.Equal(t, []string{"Formula/**"}, cfg.Rules.PackageManagerPaths["homebrew"])

	// files that do not mention the table keep every default ecosystem
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte("strict: true\n"), 0o644))
	cfg, err = Load("", envMap(map[string]string{"BUCKET_CHECK_ROOT": root}))
	require.NoError(t, err)
	assert.Equal(t, []string{"homebrew", "vscode"}, cfg.Ecosystems())
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strict: [\n"), 0o644))
	_, err := Load(path, envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"BUCKET_CHECK_ROOT": t.TempDir(),
		"NO_COLOR":          "",
		"GITHUB_ACTIONS":    "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, ColorNever, cfg.Color)
	assert.True(t, cfg.CI)
	assert.Equal(t, FormatGitHub, cfg.Format)

	cfg, err = Load("", envMap(map[string]string{
		"BUCKET_CHECK_ROOT":   t.TempDir(),
		"BUCKET_CHECK_FORMAT": "json",
		"CI":                  "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.False(t, cfg.CI)
}

func TestColorEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.ColorEnabled(true))
	assert.False(t, cfg.ColorEnabled(false))

	cfg.CI = true
	assert.False(t, cfg.ColorEnabled(true))

	cfg.Color = ColorAlways
	assert.True(t, cfg.ColorEnabled(false))

	cfg.Color = ColorNever
	assert.False(t, cfg.ColorEnabled(true))
}

func TestPassEnabled(t *testing.T) {
	cfg := Default()
	for _, p := range Passes {
		assert.True(t, cfg.PassEnabled(p))
	}
	cfg.Only = []string{PassManifest}
	assert.True(t, cfg.PassEnabled(PassManifest))
	assert.False(t, cfg.PassEnabled(PassStructure))
}

func TestValidateAggregates(t *testing.T) {
	cfg := Default()
	cfg.Color = "sometimes"
	cfg.Format = "xml"
	cfg.Only = []string{"lint"}
	cfg.Rules.MainProjectPaths = append(cfg.Rules.MainProjectPaths, "src/[")

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "sometimes"`)
	assert.Contains(t, msg, `unknown format "xml"`)
	assert.Contains(t, msg, `unknown pass "lint"`)
	assert.Contains(t, msg, `invalid pattern "src/["`)
}

func TestEcosystemsSorted(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"homebrew", "vscode"}, cfg.Ecosystems())
}
