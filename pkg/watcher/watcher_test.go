package watcher

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, targetOrg string) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"target-org": targetOrg})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), body, 0o644))
}

func TestWatcherFiresOnChangeAfterDebounce(t *testing.T) {
	workspace := t.TempDir()
	sfDir := filepath.Join(workspace, ".sf")
	require.NoError(t, os.Mkdir(sfDir, 0o755))
	writeConfig(t, sfDir, "alias-one")

	events := make(chan OrgChanged, 4)
	w := New(workspace, func(e OrgChanged) { events <- e }, nil)
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeConfig(t, sfDir, "alias-two")

	select {
	case e := <-events:
		assert.Equal(t, "alias-one", e.OldAlias)
		assert.Equal(t, "alias-two", e.NewAlias)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OrgChanged event")
	}
}

func TestWatcherDoesNotFireWhenAliasUnchanged(t *testing.T) {
	workspace := t.TempDir()
	sfDir := filepath.Join(workspace, ".sf")
	require.NoError(t, os.Mkdir(sfDir, 0o755))
	writeConfig(t, sfDir, "same-alias")

	events := make(chan OrgChanged, 4)
	w := New(workspace, func(e OrgChanged) { events <- e }, nil)
	w.SetDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeConfig(t, sfDir, "same-alias")

	select {
	case e := <-events:
		t.Fatalf("unexpected event for unchanged alias: %+v", e)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestReadTargetOrgMissingFileIsNotFatal(t *testing.T) {
	workspace := t.TempDir()
	w := New(workspace, nil, nil)
	_, ok := w.readTargetOrg()
	assert.False(t, ok)
}

func TestStartStopIsIdempotent(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(workspace, ".sf"), 0o755))

	w := New(workspace, nil, nil)
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}
