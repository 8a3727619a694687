package local

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	ffs "ftpsync/internal/fs"
)

// Adapter 本地文件系统适配器
type Adapter struct {
	rootDir string // 本地绝对路径根目录
}

// NewAdapter 创建一个新的本地适配器
func NewAdapter(rootDir string) *Adapter {
	// 确保 rootDir 是绝对路径
	absDir, err := filepath.Abs(rootDir)
	if err != nil {
		absDir = rootDir
	}
	return &Adapter{rootDir: absDir}
}

// Root 返回根目录
func (a *Adapter) Root() string {
	return a.rootDir
}

// toSysPath 将相对路径转换为本地系统绝对路径
// 输入: "docs/file.txt" -> 输出 (Windows): "D:\Data\docs\file.txt"
func (a *Adapter) toSysPath(relPath string) string {
	return filepath.Join(a.rootDir, filepath.FromSlash(relPath))
}

// toRelPath 将本地系统绝对路径转换为统一相对路径
// 输入 (Windows): "D:\Data\docs\file.txt" -> 输出: "docs/file.txt"
func (a *Adapter) toRelPath(fullPath string) (string, error) {
	rel, err := filepath.Rel(a.rootDir, fullPath)
	if err != nil {
		return "", err
	}
	// 统一转为 "/" 分隔符
	return filepath.ToSlash(rel), nil
}

// ListAll 递归扫描本地目录，返回扁平条目集
//
// 过滤规则:
//   - 隐藏文件 (文件名以 "." 开头) 不进入结果
//   - 目录条目由文件路径的祖先链推导，所以没有任何后代文件的目录
//     不会出现在结果里，无论它嵌套多深
//   - 符号链接不跟随 (WalkDir 语义)，因此链接成环不会导致不终止
//
// 不可读的条目记录警告后跳过，扫描继续；根目录不存在则直接失败
func (a *Adapter) ListAll() (map[string]*ffs.PathEntry, error) {
	info, err := os.Stat(a.rootDir)
	if err != nil {
		return nil, fmt.Errorf("无法访问本地根目录 %s: %w", a.rootDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("本地根目录 %s 不是目录", a.rootDir)
	}

	var files []*ffs.PathEntry

	// WalkDir 的递归深度随 goroutine 栈动态增长，目录层级不设上限
	err = filepath.WalkDir(a.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// 权限不足等局部错误: 跳过该条目，继续扫描
			slog.Warn("扫描本地文件出错，已跳过", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// 跳过根目录本身
		if path == a.rootDir {
			return nil
		}

		// 目录条目稍后从文件路径推导
		if d.IsDir() {
			return nil
		}

		// 非常规文件 (符号链接、设备文件等) 不同步
		if !d.Type().IsRegular() {
			return nil
		}

		if ffs.IsHiddenName(d.Name()) {
			return nil
		}

		relPath, err := a.toRelPath(path)
		if err != nil {
			slog.Warn("无法计算相对路径，已跳过", "path", path, "err", err)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			slog.Warn("读取文件信息失败，已跳过", "path", path, "err", err)
			return nil
		}

		files = append(files, &ffs.PathEntry{
			Kind:    ffs.KindFile,
			RelPath: relPath,
			AbsPath: path,
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 从文件的祖先链补齐目录条目
	entries := make(map[string]*ffs.PathEntry, len(files))
	for _, e := range files {
		entries[e.RelPath] = e
		for _, dir := range ffs.ParentDirs(e.RelPath) {
			if _, ok := entries[dir]; ok {
				continue
			}
			entries[dir] = &ffs.PathEntry{
				Kind:    ffs.KindDir,
				RelPath: dir,
				AbsPath: a.toSysPath(dir),
				Size:    ffs.DirSizeSentinel,
			}
		}
	}

	return entries, nil
}

// OpenStream 打开本地文件读取流
func (a *Adapter) OpenStream(relPath string) (io.ReadCloser, error) {
	fullPath := a.toSysPath(relPath)
	return os.Open(fullPath)
}
