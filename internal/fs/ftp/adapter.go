package ftp

import (
	"context"
	"io"
	"path"
	"strings"

	goftp "github.com/jlaffaye/ftp"

	ffs "ftpsync/internal/fs"
)

// session 是 Adapter 依赖的协议原语集合 (由 *Client 实现)
type session interface {
	Connect(ctx context.Context) error
	Quit() error
	ListDir(remoteDir string) ([]*goftp.Entry, error)
	MakeDir(remoteDir string) error
	RemoveDir(remoteDir string) error
	Delete(remotePath string) error
	Upload(remotePath string, stream io.Reader) error
}

// Adapter 实现了 fs.RemoteTree 接口
type Adapter struct {
	client session
	root   string // 远端根目录，例如 "/music"

	// 本次会话内已确认存在的目录，避免逐文件重复 MKD
	madeDirs map[string]bool
}

// NewAdapter 创建适配器实例
func NewAdapter(client *Client, rootDir string) *Adapter {
	return newAdapter(client, rootDir)
}

func newAdapter(client session, rootDir string) *Adapter {
	// 确保 root 路径格式正确 (以 / 开头，不以 / 结尾)
	cleanRoot := path.Clean(rootDir)
	if !strings.HasPrefix(cleanRoot, "/") {
		cleanRoot = "/" + cleanRoot
	}
	return &Adapter{
		client:   client,
		root:     cleanRoot,
		madeDirs: make(map[string]bool),
	}
}

// Root 返回根目录
func (a *Adapter) Root() string {
	return a.root
}

// toAbsPath 将相对路径转换为远端绝对路径
// relPath: "docs/file.txt" -> abs: "/music/docs/file.txt"
func (a *Adapter) toAbsPath(relPath string) string {
	return path.Join(a.root, relPath)
}

// Connect 建立会话
func (a *Adapter) Connect(ctx context.Context) error {
	return a.client.Connect(ctx)
}

// Close 关闭会话
func (a *Adapter) Close() error {
	return a.client.Quit()
}

// ListTree 递归列出远端树，返回以同步根为顶的嵌套结构
// 广度优先，用显式队列而非递归，目录层级不设上限
// 任何一层列目录失败立即整体失败: 残缺的远端视图不能用来决定删除
func (a *Adapter) ListTree(ctx context.Context) (*ffs.DirNode, error) {
	root := &ffs.DirNode{}

	type workItem struct {
		node *ffs.DirNode
		rel  string // 相对同步根的路径，根本身为 ""
	}
	queue := []workItem{{node: root, rel: ""}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := queue[0]
		queue = queue[1:]

		entries, err := a.client.ListDir(a.toAbsPath(item.rel))
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			switch e.Type {
			case goftp.EntryTypeFile:
				item.node.Files = append(item.node.Files, ffs.FileLeaf{
					Name: e.Name,
					Size: int64(e.Size),
				})
			case goftp.EntryTypeFolder:
				// 部分服务端在列表里回显 "." 和 ".."
				if e.Name == "." || e.Name == ".." {
					continue
				}
				child := item.node.AddDir(e.Name)
				queue = append(queue, workItem{
					node: child,
					rel:  ffs.Join(item.rel, e.Name),
				})
			default:
				// 符号链接等不参与同步
			}
		}
	}

	return root, nil
}

// DeleteFile 删除远端文件
func (a *Adapter) DeleteFile(relPath string) error {
	return a.client.Delete(a.toAbsPath(relPath))
}

// RemoveDir 删除远端目录
// 调用方保证目录此时已为空 (删除阶段先子后父的排序)
func (a *Adapter) RemoveDir(relPath string) error {
	delete(a.madeDirs, relPath)
	return a.client.RemoveDir(a.toAbsPath(relPath))
}

// EnsureDir 自根向下逐级创建目录链
// MakeDir 对已存在的目录幂等，所以不需要先探测
func (a *Adapter) EnsureDir(relPath string) error {
	if relPath == "" || relPath == "." {
		return nil
	}

	parts := strings.Split(relPath, "/")
	cur := ""
	for _, part := range parts {
		cur = ffs.Join(cur, part)
		if a.madeDirs[cur] {
			continue
		}
		if err := a.client.MakeDir(a.toAbsPath(cur)); err != nil {
			return err
		}
		a.madeDirs[cur] = true
	}
	return nil
}

// Upload 上传文件流到远端路径
func (a *Adapter) Upload(relPath string, stream io.Reader) error {
	return a.client.Upload(a.toAbsPath(relPath), stream)
}

// 编译期确认 Adapter 满足接口
var _ ffs.RemoteTree = (*Adapter)(nil)
