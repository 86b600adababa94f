package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/sophysics/internal/config"
)

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sophysics.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"error\"\n"), 0o600))
	return path
}

func TestRunReportsEveryScene(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	scene := filepath.Join("..", "..", "internal", "scene", "testdata", "binary.json")
	yamlScene := filepath.Join("..", "..", "internal", "scene", "testdata", "binary.yaml")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-config", quietConfig(t), "-frames", "3", scene, yamlScene}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SCENE"))
	assert.Contains(t, lines[1], "binary.json")
	assert.Contains(t, lines[2], "binary.yaml")

	digest := func(line string) string { return strings.Fields(line)[4] }
	assert.Equal(t, digest(lines[1]), digest(lines[2]), "both files describe the same scene")
}

func TestRunNeedsScenes(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run([]string{"-config", quietConfig(t)}, &out))
	require.Error(t, run([]string{"-config", quietConfig(t), "missing.json"}, &out))
}
