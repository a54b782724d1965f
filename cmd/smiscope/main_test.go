package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smiscope/internal/cim"
	"smiscope/internal/config"
	"smiscope/internal/domain"
	"smiscope/internal/profile"
	"smiscope/internal/repository/sqlite"
)

type testEnv struct {
	dir      string
	snapshot string
	config   string
	db       string
}

// newTestEnv writes a captured array and a config whose target replays it
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	snap := cim.NewSnapshot("array-a")
	snap.Profile = profile.GenericName
	snap.Add(cim.QueryResult{Class: "CIM_StorageSystem", Records: []domain.RawEntityRecord{{
		Class:      "CIM_StorageSystem",
		Attributes: map[string]any{"Name": "sysA", "ElementName": "Array A"},
	}}})
	snap.Add(cim.QueryResult{Class: "CIM_StoragePool", Records: []domain.RawEntityRecord{{
		Class: "CIM_StoragePool",
		Attributes: map[string]any{
			"InstanceID": "sysA+pool0", "PoolID": "pool0",
			"TotalManagedSpace": "1000", "RemainingManagedSpace": "400",
		},
	}}})

	env := &testEnv{
		dir:      dir,
		snapshot: filepath.Join(dir, "array-a.yaml"),
		config:   filepath.Join(dir, "smiscope.yaml"),
		db:       filepath.Join(dir, "smiscope.db"),
	}
	require.NoError(t, cim.SaveSnapshot(env.snapshot, snap))

	cfg := fmt.Sprintf(`
log_level: error
database:
  path: %s
targets:
  - name: array-a
    url: file://%s
`, env.db, env.snapshot)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0600))
	return env
}

func (e *testEnv) run(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out, io.Discard)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestProfilesCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(context.Background(), "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, profile.GenericName)
	assert.Contains(t, out, profile.IBMSVCName)
}

func TestReplayCommand(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{"json", []string{"replay", env.snapshot}, []string{`"storage_pool"`, `"source": "array-a"`}},
		{"yaml renamed", []string{"replay", env.snapshot, "--format", "yaml", "--target", "lab"}, []string{"storage_pool", "source: lab"}},
		{"forced profile", []string{"replay", env.snapshot, "--profile", profile.GenericName}, []string{`"Array A"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(context.Background(), tt.args...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}

	t.Run("unknown profile", func(t *testing.T) {
		_, err := env.run(context.Background(), "replay", env.snapshot, "--profile", "hitachi")
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := env.run(context.Background(), "replay", env.snapshot, "--format", "xml")
		assert.ErrorContains(t, err, "unsupported export format")
	})
}

func TestDiscoverCommandStoresRun(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(context.Background(), "discover", "--target", "array-a", "--db")
	require.NoError(t, err)

	var frag domain.GraphFragment
	require.NoError(t, json.Unmarshal([]byte(out), &frag))
	assert.Equal(t, "array-a", frag.Source)
	assert.Len(t, frag.NodesOfType(domain.NodeTypeStorageArray), 1)

	repo, err := sqlite.New(env.db)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	sources, err := repo.ListSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"array-a"}, sources)

	runs, err := repo.ListRuns(ctx, "array-a", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusSucceeded, runs[0].Status)
	assert.Equal(t, profile.GenericName, runs[0].Profile)
	assert.Equal(t, len(frag.Nodes), runs[0].Nodes)
}

func TestDiscoverCommandErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(context.Background(), "discover", "--target", "nope")
	assert.ErrorIs(t, err, config.ErrUnknownTarget)

	_, err = env.run(context.Background(), "discover")
	assert.ErrorContains(t, err, "required flag")
}

func TestCaptureCommand(t *testing.T) {
	env := newTestEnv(t)
	output := filepath.Join(env.dir, "capture.yaml")

	_, err := env.run(context.Background(), "capture", "--target", "array-a", "-o", output)
	require.NoError(t, err)

	snap, err := cim.LoadSnapshot(output)
	require.NoError(t, err)
	assert.Equal(t, "array-a", snap.Target)
	assert.Equal(t, profile.GenericName, snap.Profile)
	assert.Len(t, snap.Records("CIM_StorageSystem"), 1)
	assert.Len(t, snap.Records("CIM_StoragePool"), 1)
}

func TestServeStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := env.run(ctx, "serve", "--addr", "127.0.0.1:0")
	assert.NoError(t, err)

	// The first poll runs on start and finishes before serve returns
	repo, err := sqlite.New(env.db)
	require.NoError(t, err)
	defer repo.Close()
	runs, err := repo.ListRuns(context.Background(), "array-a", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, runs)
}

func TestConfigErrors(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out, io.Discard)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "profiles"})
	assert.ErrorContains(t, cmd.Execute(), "read config")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "smiscope.yaml")

	var out bytes.Buffer
	cmd := newRootCmd(&out, io.Discard)
	cmd.SetArgs([]string{"--config", path, "init"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	cfg, _, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, config.PostureBalanced, cfg.Posture)

	cmd = newRootCmd(&out, io.Discard)
	cmd.SetArgs([]string{"--config", path, "init"})
	assert.ErrorContains(t, cmd.Execute(), "already exists")

	cmd = newRootCmd(&out, io.Discard)
	cmd.SetArgs([]string{"--config", path, "init", "--force"})
	assert.NoError(t, cmd.Execute())
}
