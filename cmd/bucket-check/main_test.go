package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestJSON = `{
    "version": "2.0.1",
    "description": "Example tool",
    "homepage": "https://example.org/tool",
    "license": "Apache-2.0",
    "depends": "python",
    "url": "https://example.org/tool-2.0.1.zip",
    "hash": "sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
    "bin": "tool.ps1",
    "checkver": "github",
    "autoupdate": {
        "url": "https://example.org/tool-$version.zip"
    }
}
`

func bucket(t *testing.T, extra map[string]string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md":        "# bucket\n",
		"bucket/tool.json": manifestJSON,
	}
	for k, v := range extra {
		files[k] = v
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

// env returns a lookup that sees only the given variables.
func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func runCLI(t *testing.T, lookup func(string) (string, bool), args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, lookup)
	return code, stdout.String(), stderr.String()
}

func TestRunCleanBucket(t *testing.T) {
	root := bucket(t, nil)
	code, out, errOut := runCLI(t, env(nil), root)
	assert.Equal(t, 0, code, "stdout:\n%s\nstderr:\n%s", out, errOut)
	assert.Contains(t, out, "== structure")
	assert.Contains(t, out, "OK: ")
	assert.NotContains(t, out, "\x1b[")
}

func TestRunFailuresExitOne(t *testing.T) {
	root := bucket(t, map[string]string{"setup.py": "from setuptools import setup\n"})
	code, out, _ := runCLI(t, env(nil), root)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAIL  setup.py belongs to the main project")
	assert.Contains(t, out, "FAILED: ")
}

func TestRunStrictPromotesWarnings(t *testing.T) {
	root := bucket(t, map[string]string{
		"bucket/tool.json": strings.ReplaceAll(manifestJSON, "    ", "\t"),
	})
	code, _, _ := runCLI(t, env(nil), root)
	assert.Equal(t, 0, code)

	code, _, _ = runCLI(t, env(nil), root, "--strict")
	assert.Equal(t, 1, code)
}

func TestRunJSONFormat(t *testing.T) {
	root := bucket(t, nil)
	code, out, _ := runCLI(t, env(nil), root, "--format", "json")
	require.Equal(t, 0, code)

	var got struct {
		Results []map[string]any `json:"results"`
		Summary struct {
			OK bool `json:"ok"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Summary.OK)
	assert.NotEmpty(t, got.Results)
}

func TestRunGitHubActionsImpliesGitHubFormat(t *testing.T) {
	root := bucket(t, map[string]string{"Formula/tool.rb": "class Tool < Formula\nend\n"})
	code, out, _ := runCLI(t, env(map[string]string{"GITHUB_ACTIONS": "true"}), root)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "::group::package-managers")
	assert.Contains(t, out, "::error file=Formula,title=package-managers/homebrew::")

	// an explicit flag wins over the environment
	_, out, _ = runCLI(t, env(map[string]string{"GITHUB_ACTIONS": "true"}), root, "--format", "text")
	assert.Contains(t, out, "== package-managers")
}

func TestRunOnly(t *testing.T) {
	root := bucket(t, map[string]string{"setup.py": ""})
	code, out, _ := runCLI(t, env(nil), root, "--only", "structure,manifest")
	assert.Equal(t, 0, code, out)
	assert.NotContains(t, out, "== main-project")
}

func TestRunRootFromEnvironment(t *testing.T) {
	root := bucket(t, nil)
	code, _, _ := runCLI(t, env(map[string]string{"BUCKET_CHECK_ROOT": root}))
	assert.Equal(t, 0, code)
}

func TestRunConfigFile(t *testing.T) {
	root := bucket(t, map[string]string{
		".bucket-check.yaml": "rules:\n  required_paths: [bucket, README.md, LICENSE]\n",
	})
	code, out, _ := runCLI(t, env(nil), root)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "required path LICENSE is missing")
}

func TestRunUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"too many args":  {"a", "b"},
		"unknown flag":   {"--nope"},
		"bad format":     {"--format", "xml", "."},
		"bad pass":       {"--only", "lint", "."},
		"missing config": {"--config", filepath.Join(t.TempDir(), "none.yaml"), "."},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, out, errOut := runCLI(t, env(nil), args...)
			assert.Equal(t, 2, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, "bucket-check:")
		})
	}
}

func TestRunMissingRoot(t *testing.T) {
	code, _, errOut := runCLI(t, env(nil), filepath.Join(t.TempDir(), "gone"))
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid repository root")
}

func TestRunVerboseLogsToStderr(t *testing.T) {
	root := bucket(t, nil)
	code, out, errOut := runCLI(t, env(nil), root, "-v")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "pass done")
	assert.NotContains(t, out, "pass done")
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, env(nil), "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "bucket-check dev\n", out)
}
