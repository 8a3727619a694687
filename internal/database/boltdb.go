package database

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// BucketName 是数据库中的“表名”
	BucketName = "SyncHistory"
)

// DB 封装 BoltDB 实例
type DB struct {
	conn *bbolt.DB
}

// NewBoltDB 初始化并打开数据库
func NewBoltDB(dbPath string) (*DB, error) {
	// 打开数据库，如果文件不存在则创建
	// Timeout 选项防止两个进程同时打开同一个数据库导致死锁
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开 BoltDB 失败: %w", err)
	}

	// 确保 Bucket 存在
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("创建 Bucket 失败: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	return d.conn.Close()
}

// Append 追加一条运行记录
// Key 用开始时间的大端序编码，BoltDB 按字节序遍历即按时间遍历
func (d *DB) Append(rec *SyncRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(rec.StartedAt))

	return d.conn.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		return b.Put(key, data)
	})
}

// Recent 返回最近的 n 条运行记录，新的在前
func (d *DB) Recent(n int) ([]*SyncRecord, error) {
	var result []*SyncRecord

	err := d.conn.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketName)).Cursor()

		for k, v := c.Last(); k != nil && len(result) < n; k, v = c.Prev() {
			var rec SyncRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("解析数据失败 key=%x: %w", k, err)
			}
			result = append(result, &rec)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}
