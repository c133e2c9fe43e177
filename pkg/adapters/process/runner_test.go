package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tessera/pkg/domain"
)

func skipWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_Output(t *testing.T) {
	skipWindows(t)

	r := NewRunner()
	r.Register("greet", "sh", "-c", `echo "$TESSERA_ACTOR says $TESSERA_ARG_1 ($TESSERA_ARGS)"`)

	t.Run("Executes Registered Command", func(t *testing.T) {
		out, err := r.Output(context.Background(), &domain.Subject{ID: "steve"}, "greet hi there")
		require.NoError(t, err)
		assert.Equal(t, "steve says hi (hi there)", out)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		err := r.RunCommand(context.Background(), nil, "rm -rf /")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})

	t.Run("Fails For Empty Command", func(t *testing.T) {
		assert.Error(t, r.RunCommand(context.Background(), nil, "   "))
	})
}

func TestRunner_ReportsStderr(t *testing.T) {
	skipWindows(t)

	r := NewRunner()
	r.Register("broken", "sh", "-c", "echo nope >&2; exit 3")

	err := r.RunCommand(context.Background(), nil, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestLoadCommands(t *testing.T) {
	skipWindows(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
commands:
  - name: day
    command: sh
    args: ["-c", "echo $GREETING"]
    env:
      GREETING: morning
  - name: ""
    command: ignored
`), 0o644))

	cmds, err := LoadCommands(path)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	r := NewRunner(WithRegistry(cmds), WithBaseDir(dir))
	assert.Equal(t, []string{"day"}, r.Names())
	out, err := r.Output(context.Background(), nil, "day")
	require.NoError(t, err)
	assert.Equal(t, "morning", out)

	missing, err := LoadCommands(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
