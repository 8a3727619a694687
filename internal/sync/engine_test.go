package sync

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftpsync/internal/database"
	ffs "ftpsync/internal/fs"
	"ftpsync/internal/fs/local"
)

// fakeRemote 按调用顺序记录所有变更操作
type fakeRemote struct {
	tree *ffs.DirNode

	connectErr error
	listErr    error
	failDelete string // 删除该相对路径时报错
	failUpload string // 上传该相对路径时报错

	connected bool
	closed    bool
	ops       []string
}

func (f *fakeRemote) Root() string { return "/target" }

func (f *fakeRemote) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeRemote) Close() error {
	f.closed = true
	return nil
}

func (f *fakeRemote) ListTree(context.Context) (*ffs.DirNode, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.tree == nil {
		return &ffs.DirNode{}, nil
	}
	return f.tree, nil
}

func (f *fakeRemote) DeleteFile(relPath string) error {
	if relPath == f.failDelete {
		return errors.New("550 permission denied")
	}
	f.ops = append(f.ops, "delete "+relPath)
	return nil
}

func (f *fakeRemote) RemoveDir(relPath string) error {
	f.ops = append(f.ops, "rmdir "+relPath)
	return nil
}

func (f *fakeRemote) EnsureDir(relPath string) error {
	if relPath == "" {
		return nil
	}
	f.ops = append(f.ops, "mkdir "+relPath)
	return nil
}

func (f *fakeRemote) Upload(relPath string, stream io.Reader) error {
	io.Copy(io.Discard, stream)
	if relPath == f.failUpload {
		return errors.New("451 transfer aborted")
	}
	f.ops = append(f.ops, "upload "+relPath)
	return nil
}

func writeLocal(t *testing.T, root, rel string, size int) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, make([]byte, size), 0644))
}

func newTestEngine(localRoot string, remote *fakeRemote) *Engine {
	return NewEngine(&EngineOptions{
		LocalFS:  local.NewAdapter(localRoot),
		RemoteFS: remote,
	})
}

func TestEngineFirstSync(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "script.sh", 136)
	writeLocal(t, root, "docs/report.pdf", 100)
	writeLocal(t, root, "empty.bin", 0)

	remote := &fakeRemote{}
	report, err := newTestEngine(root, remote).Run(context.Background())
	require.NoError(t, err)

	// 3 个文件 + 1 个推导出的目录条目
	assert.Equal(t, 4, report.Added)
	assert.Equal(t, 0, report.Removed)
	// 空文件按 1 字节记账，保证 0 字节与失败可区分
	assert.Equal(t, int64(136+100+1), report.BytesTransferred)
	assert.False(t, report.Cancelled)

	assert.Equal(t, []string{
		"mkdir docs",
		"upload docs/report.pdf",
		"upload empty.bin",
		"upload script.sh",
	}, remote.ops)
	assert.True(t, remote.connected)
	assert.True(t, remote.closed)
}

func TestEngineDeleteBeforeAdd(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "script.sh", 10)

	tree := &ffs.DirNode{}
	dir := tree.AddDir("dir")
	dir.Files = []ffs.FileLeaf{
		{Name: "file1.bin", Size: 100},
		{Name: "file2.bin", Size: 50},
	}

	remote := &fakeRemote{tree: tree}
	report, err := newTestEngine(root, remote).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Removed)
	// 删除阶段整体先于上传阶段；文件先于所在目录
	assert.Equal(t, []string{
		"delete dir/file2.bin",
		"delete dir/file1.bin",
		"rmdir dir",
		"upload script.sh",
	}, remote.ops)
}

func TestEngineRemoveGateDeclined(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "keep.bin", 1)

	tree := &ffs.DirNode{Files: []ffs.FileLeaf{{Name: "stale.bin", Size: 9}}}
	remote := &fakeRemote{tree: tree}

	var asked []*ffs.PathEntry
	engine := NewEngine(&EngineOptions{
		LocalFS:  local.NewAdapter(root),
		RemoteFS: remote,
		ConfirmRemove: func(remove []*ffs.PathEntry) bool {
			asked = remove
			return false
		},
	})

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	require.Len(t, asked, 1)
	assert.Equal(t, "stale.bin", asked[0].RelPath)
	// 放弃后不应用任何变更，包括上传
	assert.Empty(t, remote.ops)
}

func TestEngineWipeGateDeclined(t *testing.T) {
	root := t.TempDir() // 本地完全为空

	remote := &fakeRemote{}
	engine := NewEngine(&EngineOptions{
		LocalFS:     local.NewAdapter(root),
		RemoteFS:    remote,
		ConfirmWipe: func() bool { return false },
	})

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	// 关卡在任何网络活动之前
	assert.False(t, remote.connected)
}

func TestEngineWipeConfirmed(t *testing.T) {
	root := t.TempDir()

	tree := &ffs.DirNode{Files: []ffs.FileLeaf{{Name: "doomed.bin", Size: 1}}}
	remote := &fakeRemote{tree: tree}
	engine := NewEngine(&EngineOptions{
		LocalFS:     local.NewAdapter(root),
		RemoteFS:    remote,
		ConfirmWipe: func() bool { return true },
	})

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{"delete doomed.bin"}, remote.ops)
}

func TestEngineConnectError(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "a.bin", 1)

	remote := &fakeRemote{connectErr: errors.New("connection refused")}
	_, err := newTestEngine(root, remote).Run(context.Background())

	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestEngineEnumerationError(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "a.bin", 1)

	remote := &fakeRemote{listErr: errors.New("timeout")}
	_, err := newTestEngine(root, remote).Run(context.Background())

	assert.ErrorIs(t, err, ErrEnumeration)
	// 残缺的远端视图不能触发任何删除
	assert.Empty(t, remote.ops)
}

func TestEngineDeleteFailureAborts(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "new.bin", 1)

	tree := &ffs.DirNode{Files: []ffs.FileLeaf{
		{Name: "a.bin", Size: 1},
		{Name: "b.bin", Size: 2},
	}}
	// 降序删除先碰到 b.bin，让它失败
	remote := &fakeRemote{tree: tree, failDelete: "b.bin"}

	_, err := newTestEngine(root, remote).Run(context.Background())
	assert.ErrorIs(t, err, ErrApply)

	// 快速失败: 剩余删除和整个上传阶段都不执行
	assert.Empty(t, remote.ops)
}

func TestEngineUploadFailureAborts(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "a.bin", 1)
	writeLocal(t, root, "b.bin", 1)

	remote := &fakeRemote{failUpload: "b.bin"}
	_, err := newTestEngine(root, remote).Run(context.Background())

	assert.ErrorIs(t, err, ErrApply)
	assert.Equal(t, []string{"upload a.bin"}, remote.ops)
}

func TestEngineIdempotent(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "a.bin", 5)
	writeLocal(t, root, "docs/r.pdf", 7)

	// 远端与本地 (路径, 大小) 完全一致
	tree := &ffs.DirNode{Files: []ffs.FileLeaf{{Name: "a.bin", Size: 5}}}
	tree.AddDir("docs").Files = []ffs.FileLeaf{{Name: "r.pdf", Size: 7}}

	remote := &fakeRemote{tree: tree}
	report, err := newTestEngine(root, remote).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, int64(0), report.BytesTransferred)
	assert.Empty(t, remote.ops)
}

func TestEngineLocalRootMissing(t *testing.T) {
	remote := &fakeRemote{}
	engine := newTestEngine(filepath.Join(t.TempDir(), "nope"), remote)

	_, err := engine.Run(context.Background())
	require.Error(t, err)
	// 本地失败发生在任何网络活动之前
	assert.False(t, remote.connected)
}

func TestEngineRecordsHistory(t *testing.T) {
	root := t.TempDir()
	writeLocal(t, root, "a.bin", 3)

	db, err := database.NewBoltDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	engine := NewEngine(&EngineOptions{
		LocalFS:  local.NewAdapter(root),
		RemoteFS: &fakeRemote{},
		History:  db,
	})

	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	records, err := db.Recent(5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Added)
	assert.Equal(t, int64(3), records[0].BytesTransferred)
	assert.Equal(t, "/target", records[0].TargetDir)
}
