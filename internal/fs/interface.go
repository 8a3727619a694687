package fs

import (
	"context"
	"io"
	"strings"
)

// EntryKind 路径条目类型
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
)

func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// DirSizeSentinel 目录条目的占位大小
// 目录没有有意义的字节大小，两侧统一填这个值，保证 (路径, 大小) 等值比较对目录也成立
const DirSizeSentinel = 4096

// PathEntry 一个文件系统对象的统一表示 (文件或目录)
type PathEntry struct {
	Kind EntryKind

	// 相对同步根的路径 (统一使用 "/" 作为分隔符)
	// 在一棵扁平树中作为唯一标识
	RelPath string

	// 拥有数据的那一侧的绝对路径
	// 远端条目永远不会被读回，所以远端条目此字段为空
	AbsPath string

	// 文件大小 (字节)；目录固定为 DirSizeSentinel
	Size int64
}

// FileLeaf 嵌套目录树中的一个文件
type FileLeaf struct {
	Name string
	Size int64
}

// DirNode 远端目录树的嵌套表示
// 文件和子目录分开存放，避免用哨兵键区分两类值
type DirNode struct {
	Name  string
	Files []FileLeaf
	Dirs  []*DirNode
}

// AddDir 追加一个子目录节点并返回它
func (n *DirNode) AddDir(name string) *DirNode {
	child := &DirNode{Name: name}
	n.Dirs = append(n.Dirs, child)
	return child
}

// ParentDirs 返回 relPath 的所有真祖先目录，自根向下排列
// 输入: "a/b/c.txt" -> 输出: ["a", "a/b"]
// 本地枚举和远端扁平化都用它从文件路径推导目录条目，
// 从而两侧以同一条规则保证“没有后代文件的目录不存在”
func ParentDirs(relPath string) []string {
	var dirs []string
	for i, r := range relPath {
		if r == '/' {
			dirs = append(dirs, relPath[:i])
		}
	}
	return dirs
}

// Join 拼接相对路径片段 (前缀可能为空)
func Join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// HiddenPrefix 隐藏文件标记
const HiddenPrefix = "."

// IsHiddenName 判断文件名是否为隐藏文件 (以 "." 开头)
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, HiddenPrefix)
}

// LocalTree 本地文件树 (数据源，始终以它为准)
type LocalTree interface {
	// Root 返回本地根目录的绝对路径
	Root() string

	// ListAll 扁平列出根目录下所有文件和非空目录
	// 返回 map[相对路径]条目；不可读的条目记录警告后跳过
	ListAll() (map[string]*PathEntry, error)

	// OpenStream 打开文件读取流 (上传时使用)
	OpenStream(relPath string) (io.ReadCloser, error)
}

// RemoteTree 远端文件树 (可抛弃的派生副本)
// 对应协议原语: 单层列目录、建目录、删目录、删文件、上传
type RemoteTree interface {
	// Root 返回远端根目录路径
	Root() string

	// Connect 建立会话；不可达或认证失败返回连接错误
	Connect(ctx context.Context) error

	// Close 关闭会话
	Close() error

	// ListTree 递归列出远端树，返回嵌套结构
	// 任何一层列目录失败都视为整体失败 (不完整的远端视图不能用来算删除)
	ListTree(ctx context.Context) (*DirNode, error)

	// DeleteFile 删除远端文件
	DeleteFile(relPath string) error

	// RemoveDir 删除远端目录 (目录必须已为空)
	RemoveDir(relPath string) error

	// EnsureDir 自根向下逐级创建 relPath 的目录链，已存在不算错误
	EnsureDir(relPath string) error

	// Upload 将流写入远端路径，父目录必须已存在
	Upload(relPath string, stream io.Reader) error
}
