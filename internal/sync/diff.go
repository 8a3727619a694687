package sync

import (
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"

	ffs "ftpsync/internal/fs"
)

// ComputeDelta 计算使远端与本地一致的 (add, remove) 操作集
//
// add = 本地 - 远端，remove = 远端 - 本地，差集按 cmp 导出的
// Version 计算。同一路径两侧大小不同时会同时进入两个集合，
// 这正是改动过的文件得以重传的机制
//
// add 按路径升序；remove 按路径降序。降序是精确的“先子后父”顺序:
// 祖先目录永远是后代路径的真前缀，升序时必然排在后代之前，
// 倒过来就保证了目录被删除时其内容一定已先被删除
func ComputeDelta(local, remote map[string]*ffs.PathEntry, cmp Comparator) *Delta {
	if cmp == nil {
		cmp = SizeVersion
	}

	// 流水线是单线程的，用无锁集合即可
	localSet := mapset.NewThreadUnsafeSet[Version]()
	localIdx := make(map[Version]*ffs.PathEntry, len(local))
	for _, e := range local {
		v := cmp(e)
		localSet.Add(v)
		localIdx[v] = e
	}

	remoteSet := mapset.NewThreadUnsafeSet[Version]()
	remoteIdx := make(map[Version]*ffs.PathEntry, len(remote))
	for _, e := range remote {
		v := cmp(e)
		remoteSet.Add(v)
		remoteIdx[v] = e
	}

	d := &Delta{}
	for _, v := range localSet.Difference(remoteSet).ToSlice() {
		d.Add = append(d.Add, localIdx[v])
	}
	for _, v := range remoteSet.Difference(localSet).ToSlice() {
		d.Remove = append(d.Remove, remoteIdx[v])
	}

	sort.Slice(d.Add, func(i, j int) bool {
		return d.Add[i].RelPath < d.Add[j].RelPath
	})
	sort.Slice(d.Remove, func(i, j int) bool {
		return d.Remove[i].RelPath > d.Remove[j].RelPath
	})

	return d
}

// previewPathLimit 预览行路径的最大显示长度
const previewPathLimit = 77

// truncatePath 过长路径只保留尾部，前面补省略号
func truncatePath(p string) string {
	if len(p) <= previewPathLimit {
		return p
	}
	return "..." + p[len(p)-previewPathLimit:]
}

// LogPreview 在执行任何破坏性操作之前打印完整的变更预览
func (d *Delta) LogPreview() {
	slog.Info("待同步到目标的条目:")
	if len(d.Add) == 0 {
		slog.Info("! 无需同步")
	}
	for _, e := range d.Add {
		slog.Info("+ " + truncatePath(e.RelPath) + " (" + humanize.Bytes(uint64(e.Size)) + ")")
	}

	slog.Info("待从目标删除的条目:")
	if len(d.Remove) == 0 {
		slog.Info("! 无需删除")
	}
	for _, e := range d.Remove {
		slog.Info("- " + truncatePath(e.RelPath) + " (" + humanize.Bytes(uint64(e.Size)) + ")")
	}
}
