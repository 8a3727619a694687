package sync

import (
	"errors"
	"time"

	ffs "ftpsync/internal/fs"
)

// 同步过程中的致命错误类别
// 全部在第一时间中止整个同步过程，由 main 以非零状态退出
var (
	// ErrConnectivity 无法连接或登录目标
	ErrConnectivity = errors.New("连接目标失败")
	// ErrEnumeration 枚举远端目录中途失败 (残缺的远端视图不能用来算删除)
	ErrEnumeration = errors.New("枚举远端目录失败")
	// ErrApply 删除或上传步骤失败 (已完成的步骤不回滚)
	ErrApply = errors.New("应用变更失败")
)

// Version 是参与集合差运算的条目标识
// (路径, 大小) 相同视为同一版本；大小作为内容版本的代理指标，
// 大小不变的内容修改检测不到，这是已接受的取舍
type Version struct {
	RelPath string
	Size    int64
}

// Comparator 从条目导出 Version
// 显式传入集合差运算，保持“以大小代替版本”这条启发式可见、可替换
type Comparator func(e *ffs.PathEntry) Version

// SizeVersion 默认比较器: 路径 + 字节大小
func SizeVersion(e *ffs.PathEntry) Version {
	return Version{RelPath: e.RelPath, Size: e.Size}
}

// Delta 使远端与本地一致所需的最小操作集
type Delta struct {
	// Add 本地有而远端没有 (按路径升序)
	Add []*ffs.PathEntry
	// Remove 远端有而本地没有 (按路径降序，保证先删子后删父)
	Remove []*ffs.PathEntry
}

// Empty 两侧已一致
func (d *Delta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Report 一次同步过程的结果汇总
type Report struct {
	Added            int
	Removed          int
	BytesTransferred int64
	Duration         time.Duration

	// Cancelled 用户在确认关卡放弃，未应用任何变更
	Cancelled bool
}
