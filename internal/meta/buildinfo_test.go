package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestDetectNothing(t *testing.T) {
	root := t.TempDir()
	write(t, root, "bucket/tool.json", "{}")
	assert.Empty(t, Detect(root, []string{"bucket", "bucket/tool.json"}))
}

func TestDetectPython(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pyproject.toml", "[project]\nname = \"cooltool\"\nversion = \"1.0\"\n")
	write(t, root, "requirements-dev.txt", "pytest\n")

	infos := Detect(root, []string{"pyproject.toml", "requirements-dev.txt"})
	require.Len(t, infos, 1)
	assert.Equal(t, Python, infos[0].Ecosystem)
	assert.Equal(t, "cooltool", infos[0].Name)
	assert.Equal(t, []string{"pyproject.toml", "requirements-dev.txt"}, infos[0].Evidence)
	assert.Equal(t, `python project "cooltool" (pyproject.toml, requirements-dev.txt)`, infos[0].Summary())
}

func TestDetectPythonNameFromProjectTable(t *testing.T) {
	root := t.TempDir()
	write(t, root, "pyproject.toml", `[[tool.poetry.source]]
name = "pypi-mirror"
url = "https://mirror.example.org/simple"

[tool.poetry]
name = "poetry-tool"

[project]
name = "real-tool" # published name
`)
	infos := Detect(root, []string{"pyproject.toml"})
	require.Len(t, infos, 1)
	assert.Equal(t, "real-tool", infos[0].Name)

	write(t, root, "pyproject.toml", "[[tool.poetry.source]]\nname = \"pypi\"\n\n[tool.poetry]\nname = \"poetry-tool\"\n")
	infos = Detect(root, []string{"pyproject.toml"})
	require.Len(t, infos, 1)
	assert.Equal(t, "poetry-tool", infos[0].Name)

	write(t, root, "pyproject.toml", "[tool.black]\nline-length = 100\n")
	infos = Detect(root, []string{"pyproject.toml"})
	require.Len(t, infos, 1)
	assert.Empty(t, infos[0].Name)
}

func TestDetectPythonSetupPy(t *testing.T) {
	root := t.TempDir()
	write(t, root, "setup.py", "from setuptools import setup\nsetup(name='legacy', version='0.1')\n")
	infos := Detect(root, []string{"setup.py"})
	require.Len(t, infos, 1)
	assert.Equal(t, "legacy", infos[0].Name)
}

func TestDetectHomebrew(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Formula/cooltool.rb", "class Cooltool < Formula\n  desc \"x\"\nend\n")
	write(t, root, "scripts/helper.rb", "puts 'hi'\n")

	infos := Detect(root, []string{"Formula", "Formula/cooltool.rb", "scripts", "scripts/helper.rb"})
	require.Len(t, infos, 1)
	assert.Equal(t, Homebrew, infos[0].Ecosystem)
	assert.Equal(t, "cooltool", infos[0].Name)
	assert.Equal(t, []string{"Formula/cooltool.rb"}, infos[0].Evidence)
}

func TestDetectCask(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Casks/tool.rb", "cask \"cool-tool\" do\n  version \"1\"\nend\n")
	inf, ok := Find(Detect(root, []string{"Casks/tool.rb"}), Homebrew)
	require.True(t, ok)
	assert.Equal(t, "cool-tool", inf.Name)
}

func TestDetectVSCodeVersusNode(t *testing.T) {
	root := t.TempDir()
	write(t, root, "package.json", `{"name": "cooltool-vscode", "engines": {"vscode": "^1.80.0"}}`)
	inf, ok := Find(Detect(root, []string{"package.json"}), VSCode)
	require.True(t, ok)
	assert.Equal(t, "cooltool-vscode", inf.Name)
	assert.Equal(t, `vscode extension "cooltool-vscode" (package.json)`, inf.Summary())

	root = t.TempDir()
	write(t, root, "package.json", `{"name": "plain"}`)
	infos := Detect(root, []string{"package.json"})
	require.Len(t, infos, 1)
	assert.Equal(t, Node, infos[0].Ecosystem)

	root = t.TempDir()
	write(t, root, "dist/tool-1.0.0.vsix", "zip")
	infos = Detect(root, []string{"dist", "dist/tool-1.0.0.vsix"})
	require.Len(t, infos, 1)
	assert.Equal(t, VSCode, infos[0].Ecosystem)
	assert.Empty(t, infos[0].Name)
}

func TestDetectMalformedPackageJSON(t *testing.T) {
	root := t.TempDir()
	write(t, root, "package.json", `{not json`)
	infos := Detect(root, []string{"package.json"})
	require.Len(t, infos, 1)
	assert.Equal(t, Node, infos[0].Ecosystem)
}

func TestFindMissing(t *testing.T) {
	_, ok := Find(nil, Python)
	assert.False(t, ok)
}
