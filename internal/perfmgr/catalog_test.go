package perfmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_BuildsTestNodes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	toml := `
[[nodes]]
name = "cpu_min"
kind = "test"
values = ["0", "600", "1200"]
reset_on_init = true

[[nodes]]
name = "gpu_freq"
kind = "test"
values = ["0", "500"]
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat.Nodes, 2)

	nodes, err := cat.BuildNodes(nil, SystemClock{}, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, "cpu_min", nodes[0].Name)
	require.Equal(t, "0", nodes[0].AppliedValue())
}

func TestLoadCatalog_RejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	toml := `
[[nodes]]
name = "cpu_min"
kind = "test"
values = ["0"]

[[nodes]]
name = "cpu_min"
kind = "test"
values = ["0"]
`
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))
	_, err := LoadCatalog(path)
	require.Error(t, err)
}
