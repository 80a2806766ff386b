package status

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/stagehand/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	os.Exit(m.Run())
}

func TestInstanceHashStable(t *testing.T) {
	a := InstanceHash("/home/alice/projects/demo")
	b := InstanceHash("/home/alice/projects/demo")
	c := InstanceHash("/home/alice/projects/other")

	assert.Len(t, a, 8)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFilePathUsesHash(t *testing.T) {
	path := FilePath("/data", "/proj")
	assert.Equal(t, filepath.Join("/data", "stagehand-status-"+InstanceHash("/proj")+".json"), path)
}

func TestWriteReadRemove(t *testing.T) {
	dir := t.TempDir()

	f, err := Write(dir, "/proj/demo", "Demo", 6400)
	require.NoError(t, err)
	require.FileExists(t, f.Path())

	info, err := Read(f.Path())
	require.NoError(t, err)
	assert.Equal(t, Schema, info.Schema)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, 6400, info.TCPPort)
	assert.Equal(t, "/proj/demo", info.ProjectPath)
	assert.Equal(t, "Demo", info.ProjectName)
	assert.NotEmpty(t, info.StartedAt)
	assert.False(t, info.Reloading)

	require.NoError(t, f.Remove())
	assert.NoFileExists(t, f.Path())

	// Second removal is a no-op.
	require.NoError(t, f.Remove())
}

func TestSetReloading(t *testing.T) {
	dir := t.TempDir()

	f, err := Write(dir, "/proj/demo", "Demo", 6400)
	require.NoError(t, err)
	defer f.Remove()

	require.NoError(t, f.SetReloading(true))

	info, err := Read(f.Path())
	require.NoError(t, err)
	assert.True(t, info.Reloading)

	require.NoError(t, f.SetReloading(false))

	info, err = Read(f.Path())
	require.NoError(t, err)
	assert.False(t, info.Reloading)
}

func TestSetTCPPort(t *testing.T) {
	dir := t.TempDir()

	f, err := Write(dir, "/proj/demo", "Demo", 0)
	require.NoError(t, err)
	defer f.Remove()

	require.NoError(t, f.SetTCPPort(49152))

	info, err := Read(f.Path())
	require.NoError(t, err)
	assert.Equal(t, 49152, info.TCPPort)
}

func TestReadRejectsUnknownSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stagehand-status-deadbeef.json")

	data, err := json.Marshal(map[string]any{"schema": 99, "pid": 1})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported status schema")
}

func TestDiscoverSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()

	_, err := Write(dir, "/proj/a", "A", 6400)
	require.NoError(t, err)
	_, err = Write(dir, "/proj/b", "B", 6401)
	require.NoError(t, err)

	// A corrupt file should be skipped, not fail discovery.
	corrupt := filepath.Join(dir, "stagehand-status-00000000.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0644))

	infos, err := Discover(dir)
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	names := []string{infos[0].ProjectName, infos[1].ProjectName}
	assert.ElementsMatch(t, []string{"A", "B"}, names)
}
