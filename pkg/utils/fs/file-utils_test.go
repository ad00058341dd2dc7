package fs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGetUserAppDataDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on unix-likes")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := GetUserAppDataDir("hurlfix")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "hurlfix"), dir)
	assert.DirExists(t, dir)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/srv", "bodies", "ff.bin"), ResolvePath("/srv", filepath.Join("bodies", "ff.bin")))
	abs := filepath.Join(t.TempDir(), "x.bin")
	assert.Equal(t, abs, ResolvePath("/srv", abs))
	assert.Equal(t, "", ResolvePath("/srv", ""))
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hurlfix.pid")
	require.NoError(t, WriteFileAtomic(path, []byte("123"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("456"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "456", string(data))
}
