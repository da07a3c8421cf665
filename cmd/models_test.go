package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsCommand_List(t *testing.T) {
	testEnv(t)

	output, err := execute(t, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "whisper-base *")
	assert.Contains(t, output, "whisper-tiny")
	assert.Contains(t, output, "Status")
}

func TestModelsCommand_Download(t *testing.T) {
	testEnv(t)

	output, err := execute(t, "models", "download", "whisper-tiny")
	require.NoError(t, err)
	assert.Contains(t, output, "whisper-tiny: 0%")
	assert.Contains(t, output, "whisper-tiny is available")

	_, err = execute(t, "models", "download", "no-such-model")
	assert.ErrorContains(t, err, "not in the catalog")
}

func TestModelsCommand_Select(t *testing.T) {
	testEnv(t)

	output, err := execute(t, "models", "select", "whisper-small")
	require.NoError(t, err)
	assert.Contains(t, output, "Selected whisper-small")

	_, err = execute(t, "models", "select", "no-such-model")
	assert.Error(t, err)
}
