package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/dustin/go-humanize"

	"ftpsync/internal/database"
	ffs "ftpsync/internal/fs"
)

// EngineOptions 初始化选项
type EngineOptions struct {
	LocalFS  ffs.LocalTree
	RemoteFS ffs.RemoteTree

	// History 运行记录日志 (可选，nil 表示不记录)
	// 只写不读: 同步决策永远基于本次扫描，与历史无关
	History *database.DB

	// Compare 集合差运算用的比较器，nil 则用默认的 SizeVersion
	Compare Comparator

	// ConfirmWipe 本地目录完全为空时的放行关卡
	// (阻止一次误操作清空整个远端)，nil 表示直接放行
	ConfirmWipe func() bool

	// ConfirmRemove 删除集非空时的放行关卡
	// 这是整个过程中唯一的用户取消点，nil 表示直接放行
	ConfirmRemove func(remove []*ffs.PathEntry) bool
}

// Engine 同步引擎: 枚举两侧 -> 算差集 -> 先删后传
// 全程单线程顺序执行，每个远端操作都阻塞整条流水线
type Engine struct {
	opts *EngineOptions
}

func NewEngine(opts *EngineOptions) *Engine {
	if opts.Compare == nil {
		opts.Compare = SizeVersion
	}
	return &Engine{opts: opts}
}

// Run 执行一次完整的同步过程
//
// 顺序: 扫描本地 -> 空目录关卡 -> 连接 -> 枚举远端 -> 扁平化 ->
// 算差集 -> 预览 -> 删除关卡 -> 删除阶段 -> 上传阶段
//
// 本地根目录不存在在任何网络活动之前失败；删除阶段整体先于上传
// 阶段；任一阶段内第一个失败立即中止，已完成的步骤不回滚
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	localMap, err := e.opts.LocalFS.ListAll()
	if err != nil {
		return nil, fmt.Errorf("扫描本地目录失败: %w", err)
	}

	if len(localMap) == 0 {
		if e.opts.ConfirmWipe != nil && !e.opts.ConfirmWipe() {
			slog.Info("本地目录为空，已放弃同步")
			return &Report{Cancelled: true, Duration: time.Since(start)}, nil
		}
	}

	if err := e.opts.RemoteFS.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	defer func() {
		if err := e.opts.RemoteFS.Close(); err != nil {
			slog.Warn("关闭会话失败", "err", err)
		}
	}()

	slog.Info("获取目标目录内容...", "root", e.opts.RemoteFS.Root())
	tree, err := e.opts.RemoteFS.ListTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}

	remoteMap := Flatten(tree)
	if len(remoteMap) == 0 {
		slog.Info("目标目录为空")
	}

	delta := ComputeDelta(localMap, remoteMap, e.opts.Compare)
	delta.LogPreview()

	if len(delta.Remove) > 0 {
		if e.opts.ConfirmRemove != nil && !e.opts.ConfirmRemove(delta.Remove) {
			slog.Info("已放弃同步，未应用任何变更")
			return &Report{Cancelled: true, Duration: time.Since(start)}, nil
		}
	}

	if err := e.applyRemove(delta.Remove); err != nil {
		return nil, err
	}

	bytes, err := e.applyAdd(delta.Add)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Added:            len(delta.Add),
		Removed:          len(delta.Remove),
		BytesTransferred: bytes,
		Duration:         time.Since(start),
	}
	e.recordHistory(report)
	return report, nil
}

// applyRemove 删除阶段: 按降序路径逐条删除，文件必然先于所在目录
// 第一个失败立即中止，剩余条目不再尝试
func (e *Engine) applyRemove(remove []*ffs.PathEntry) error {
	if len(remove) == 0 {
		return nil
	}

	slog.Info("删除目标上的多余条目...", "count", len(remove))
	for _, entry := range remove {
		slog.Info("删除 " + truncatePath(entry.RelPath) + "...")

		var err error
		if entry.Kind == ffs.KindDir {
			err = e.opts.RemoteFS.RemoveDir(entry.RelPath)
		} else {
			err = e.opts.RemoteFS.DeleteFile(entry.RelPath)
		}
		if err != nil {
			return fmt.Errorf("%w: 删除 %s: %w", ErrApply, entry.RelPath, err)
		}
	}
	return nil
}

// applyAdd 上传阶段: 按升序路径逐条上传
// 目录条目直接跳过 (目录随文件按需创建；显式目录条目只可能来自
// 本应被两侧空目录规则排除的场景)；第一个失败立即中止
// 返回累计传输字节数，空文件计 1 字节，保证“传了 0 字节”与
// “一个都没传成”可区分
func (e *Engine) applyAdd(add []*ffs.PathEntry) (int64, error) {
	if len(add) == 0 {
		return 0, nil
	}

	slog.Info("同步到目标...", "count", len(add))
	var total int64

	for _, entry := range add {
		if entry.Kind == ffs.KindDir {
			continue
		}

		parent := path.Dir(entry.RelPath)
		if parent == "." {
			parent = ""
		}
		if err := e.opts.RemoteFS.EnsureDir(parent); err != nil {
			return total, fmt.Errorf("%w: 创建目录 %s: %w", ErrApply, parent, err)
		}

		slog.Info("上传 " + truncatePath(entry.RelPath) +
			" (" + humanize.Bytes(uint64(entry.Size)) + ")...")

		stream, err := e.opts.LocalFS.OpenStream(entry.RelPath)
		if err != nil {
			return total, fmt.Errorf("%w: 读取 %s: %w", ErrApply, entry.RelPath, err)
		}

		uploadErr := e.opts.RemoteFS.Upload(entry.RelPath, stream)
		stream.Close()
		if uploadErr != nil {
			return total, fmt.Errorf("%w: 上传 %s: %w", ErrApply, entry.RelPath, uploadErr)
		}

		weight := entry.Size
		if weight == 0 {
			weight = 1
		}
		total += weight
	}

	return total, nil
}

// recordHistory 同步成功后追加一条运行记录
func (e *Engine) recordHistory(r *Report) {
	if e.opts.History == nil {
		return
	}

	rec := &database.SyncRecord{
		StartedAt:        time.Now().Add(-r.Duration).UnixNano(),
		DurationMillis:   r.Duration.Milliseconds(),
		Added:            r.Added,
		Removed:          r.Removed,
		BytesTransferred: r.BytesTransferred,
		SourceDir:        e.opts.LocalFS.Root(),
		TargetDir:        e.opts.RemoteFS.Root(),
	}
	if err := e.opts.History.Append(rec); err != nil {
		slog.Warn("写入运行记录失败", "err", err)
	}
}
