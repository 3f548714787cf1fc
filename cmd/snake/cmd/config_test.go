package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/snake/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snake.yaml")

	output, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err, output)
	assert.Contains(t, output, "Configuration written to "+path)

	loaded, err := config.NewLoaderWithViper(nil).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Snake, loaded.Snake)

	_, err = executeCommand(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	output, err := executeCommand(t, "config", "show", "--format", "json")
	require.NoError(t, err, output)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, config.DefaultConfig().Snake.NeighborhoodSize, cfg.Snake.NeighborhoodSize)

	output, err = executeCommand(t, "config", "show")
	require.NoError(t, err, output)
	var fromYAML config.Config
	require.NoError(t, yaml.Unmarshal([]byte(output), &fromYAML))
	assert.Equal(t, cfg.Run, fromYAML.Run)

	_, err = executeCommand(t, "config", "show", "--format", "toml")
	require.Error(t, err)
}

func TestConfigInfo(t *testing.T) {
	output, err := executeCommand(t, "config", "info")
	require.NoError(t, err)
	assert.Contains(t, output, "Environment prefix: SNAKE")
}
