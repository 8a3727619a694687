package local

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffs "ftpsync/internal/fs"
)

func writeFile(t *testing.T, root, rel string, size int) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, make([]byte, size), 0644))
}

func TestListAllFlat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "script.sh", 136)
	writeFile(t, root, "docs/report.pdf", 100)
	writeFile(t, root, "docs/img/cover.png", 50)

	a := NewAdapter(root)
	entries, err := a.ListAll()
	require.NoError(t, err)

	require.Len(t, entries, 5)

	assert.Equal(t, ffs.KindFile, entries["script.sh"].Kind)
	assert.Equal(t, int64(136), entries["script.sh"].Size)
	assert.Equal(t, int64(100), entries["docs/report.pdf"].Size)
	assert.Equal(t, int64(50), entries["docs/img/cover.png"].Size)

	// 目录条目由文件的祖先链推导
	assert.Equal(t, ffs.KindDir, entries["docs"].Kind)
	assert.Equal(t, int64(ffs.DirSizeSentinel), entries["docs"].Size)
	assert.Equal(t, ffs.KindDir, entries["docs/img"].Kind)

	// 文件条目带本地绝对路径，路径统一用 "/"
	assert.Equal(t, filepath.Join(root, "docs", "report.pdf"),
		entries["docs/report.pdf"].AbsPath)
	for rel := range entries {
		assert.NotContains(t, rel, "\\")
	}
}

func TestListAllSkipsHiddenFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".hidden", 10)
	writeFile(t, root, "docs/.DS_Store", 10)
	writeFile(t, root, "docs/visible.txt", 10)

	entries, err := NewAdapter(root).ListAll()
	require.NoError(t, err)

	assert.NotContains(t, entries, ".hidden")
	assert.NotContains(t, entries, "docs/.DS_Store")
	assert.Contains(t, entries, "docs/visible.txt")
}

func TestListAllSkipsEmptyDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/file.txt", 1)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	// 只含空目录的目录链同样不产生条目，无论多深
	require.NoError(t, os.MkdirAll(filepath.Join(root, "onlydirs", "a", "b"), 0755))

	entries, err := NewAdapter(root).ListAll()
	require.NoError(t, err)

	assert.Contains(t, entries, "keep")
	assert.Contains(t, entries, "keep/file.txt")
	assert.NotContains(t, entries, "empty")
	assert.NotContains(t, entries, "onlydirs")
	assert.NotContains(t, entries, "onlydirs/a")
	assert.NotContains(t, entries, "onlydirs/a/b")
}

func TestListAllHiddenOnlyDirExcluded(t *testing.T) {
	root := t.TempDir()
	// 目录里唯一的文件是隐藏文件 -> 目录视同空目录
	writeFile(t, root, "shadow/.secret", 5)
	writeFile(t, root, "real/file.bin", 5)

	entries, err := NewAdapter(root).ListAll()
	require.NoError(t, err)

	assert.NotContains(t, entries, "shadow")
	assert.Contains(t, entries, "real")
}

func TestListAllUnreadableEntrySkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root 不受目录权限限制")
	}

	root := t.TempDir()
	writeFile(t, root, "ok/file.bin", 3)
	writeFile(t, root, "locked/secret.bin", 3)

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	// 不可读的条目记录警告后跳过，扫描整体仍然成功
	entries, err := NewAdapter(root).ListAll()
	require.NoError(t, err)

	assert.Contains(t, entries, "ok/file.bin")
	assert.Contains(t, entries, "ok")
	assert.NotContains(t, entries, "locked/secret.bin")
	assert.NotContains(t, entries, "locked")
}

func TestListAllMissingRoot(t *testing.T) {
	a := NewAdapter(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := a.ListAll()
	require.Error(t, err)
}

func TestListAllDeepTree(t *testing.T) {
	root := t.TempDir()

	parts := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		parts = append(parts, "d")
	}
	rel := strings.Join(parts, "/") + "/leaf.bin"
	writeFile(t, root, rel, 1)

	entries, err := NewAdapter(root).ListAll()
	require.NoError(t, err)

	// 120 层目录 + 1 个文件
	assert.Len(t, entries, 121)
	assert.Contains(t, entries, rel)
}

func TestOpenStream(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b.bin", 3)

	a := NewAdapter(root)
	rc, err := a.OpenStream("a/b.bin")
	require.NoError(t, err)
	defer rc.Close()

	buf := make([]byte, 8)
	n, _ := rc.Read(buf)
	assert.Equal(t, 3, n)
}
