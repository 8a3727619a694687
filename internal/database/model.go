package database

import "time"

// SyncRecord 一次完成的同步过程的运行记录
// 存入数据库时会序列化为 JSON
// 纯观察用途: 引擎只写不读，同步决策永远不依赖这些记录
type SyncRecord struct {
	// 开始时间 (Unix Nano，同时作为数据库的 Key 保证按时间有序)
	StartedAt int64 `json:"started_at"`

	// 总耗时 (毫秒)
	DurationMillis int64 `json:"duration_ms"`

	// 上传条目数 / 删除条目数
	Added   int `json:"added"`
	Removed int `json:"removed"`

	// 累计传输字节数 (空文件计 1)
	BytesTransferred int64 `json:"bytes_transferred"`

	// 本次同步的两端
	SourceDir string `json:"source_dir"`
	TargetDir string `json:"target_dir"`
}

// StartedAtTime 辅助方法: 转为 Go Time 对象
func (r *SyncRecord) StartedAtTime() time.Time {
	return time.Unix(0, r.StartedAt)
}
