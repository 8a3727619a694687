package sync

import (
	ffs "ftpsync/internal/fs"
)

// Flatten 将远端嵌套树转为与本地枚举同构的扁平条目集
//
// 显式栈做深度优先，不受目录层级限制。文件条目按 前缀+文件名 落位，
// 目录条目随后从文件路径的祖先链推导，与本地枚举共用同一条规则:
// 没有任何后代文件的目录不产生条目。空树因此扁平化为空集，
// 这是首次同步的正常状态而不是错误
func Flatten(root *ffs.DirNode) map[string]*ffs.PathEntry {
	entries := make(map[string]*ffs.PathEntry)
	if root == nil {
		return entries
	}

	type frame struct {
		node   *ffs.DirNode
		prefix string // 相对同步根的路径前缀，根为 ""
	}
	stack := []frame{{node: root, prefix: ""}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, leaf := range f.node.Files {
			rel := ffs.Join(f.prefix, leaf.Name)
			entries[rel] = &ffs.PathEntry{
				Kind:    ffs.KindFile,
				RelPath: rel,
				Size:    leaf.Size,
				// AbsPath 留空: 远端条目不会作为数据源被读回
			}
		}

		for _, child := range f.node.Dirs {
			stack = append(stack, frame{
				node:   child,
				prefix: ffs.Join(f.prefix, child.Name),
			})
		}
	}

	// 从文件的祖先链补齐目录条目
	for _, rel := range fileKeys(entries) {
		for _, dir := range ffs.ParentDirs(rel) {
			if _, ok := entries[dir]; ok {
				continue
			}
			entries[dir] = &ffs.PathEntry{
				Kind:    ffs.KindDir,
				RelPath: dir,
				Size:    ffs.DirSizeSentinel,
			}
		}
	}

	return entries
}

func fileKeys(entries map[string]*ffs.PathEntry) []string {
	keys := make([]string, 0, len(entries))
	for rel, e := range entries {
		if e.Kind == ffs.KindFile {
			keys = append(keys, rel)
		}
	}
	return keys
}
