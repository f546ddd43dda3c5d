package cli

import (
	"testing"
	"time"

	"github.com/mrlokans/apollo-indexer/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0 min 0 sec", formatElapsed(200*time.Millisecond))
	assert.Equal(t, "1 min 5 sec", formatElapsed(65*time.Second))
	assert.Equal(t, "12 min 30 sec", formatElapsed(12*time.Minute+30*time.Second))
}

func TestLoadCommand_ParseFlags(t *testing.T) {
	t.Run("reindex selects every step", func(t *testing.T) {
		cmd := NewLoadCommand()
		require.NoError(t, cmd.ParseFlags([]string{"-collection", "biblios", "-reindex"}))
		assert.Equal(t, services.ReindexActions(), cmd.Actions)
	})

	t.Run("single action", func(t *testing.T) {
		cmd := NewLoadCommand()
		require.NoError(t, cmd.ParseFlags([]string{"-collection", "holdings", "-create", "-batch-size", "50"}))
		assert.Equal(t, services.IndexActions{Create: true}, cmd.Actions)
		assert.Equal(t, 50, cmd.BatchSize)
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing collection", []string{"-index"}, "-collection"},
		{"unknown collection", []string{"-collection", "loans", "-index"}, "unknown collection"},
		{"no action", []string{"-collection", "fines"}, "no action"},
		{"queue without index", []string{"-collection", "fines", "-create", "-queue"}, "-queue requires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLoadCommand().ParseFlags(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRetryBatchCommand_ParseFlags(t *testing.T) {
	cmd := NewRetryBatchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-run", "7", "-batch", "3"}))
	assert.Equal(t, uint(7), cmd.RunID)
	assert.Equal(t, 3, cmd.Batch)

	cmd = NewRetryBatchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-run", "7", "-all"}))
	assert.True(t, cmd.All)

	assert.Error(t, NewRetryBatchCommand().ParseFlags([]string{"-batch", "3"}))
	assert.Error(t, NewRetryBatchCommand().ParseFlags([]string{"-run", "7"}))
	assert.Error(t, NewRetryBatchCommand().ParseFlags([]string{"-run", "7", "-batch", "2", "-all"}))
}

func TestExtractCommand_Run(t *testing.T) {
	dir := t.TempDir()
	cmd := NewExtractCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"-input", "../extract/testdata/export.xml",
		"-data-dir", dir,
		"-stable-ids",
	}))

	require.NoError(t, cmd.Run())
	assert.FileExists(t, dir+"/biblios.json")
	assert.FileExists(t, dir+"/checkouts.json")
}

func TestExtractCommand_MissingInput(t *testing.T) {
	cmd := NewExtractCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-input", "does-not-exist.xml", "-data-dir", t.TempDir()}))

	err := cmd.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
