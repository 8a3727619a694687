package ftp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	goftp "github.com/jlaffaye/ftp"
)

const (
	// DefaultPort FTP 控制连接默认端口
	DefaultPort = "21"
	// DefaultTimeout 拨号与单次请求的基础超时
	DefaultTimeout = 30 * time.Second
	// AnonymousUser 匿名登录用户名 (原协议约定密码任意)
	AnonymousUser = "anonymous"
)

// Options 初始化参数
type Options struct {
	Addr     string // 目标地址，host 或 host:port
	User     string // 为空则匿名登录
	Password string
	Timeout  time.Duration
}

// control 是 Client 依赖的底层控制连接 (由 *goftp.ServerConn 实现)
type control interface {
	Login(user, password string) error
	Quit() error
	List(path string) ([]*goftp.Entry, error)
	MakeDir(path string) error
	RemoveDir(path string) error
	Delete(path string) error
	Stor(path string, r io.Reader) error
	ChangeDir(path string) error
}

// Client FTP 会话客户端
// 包装底层库，只暴露同步流程需要的五个协议原语:
// 单层列目录(MLSD)、建目录、删目录、删文件、上传
type Client struct {
	opts *Options
	conn control
}

// NewClient 创建客户端 (不建立连接)
func NewClient(opts *Options) *Client {
	if opts.User == "" {
		opts.User = AnonymousUser
		opts.Password = AnonymousUser
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if !strings.Contains(opts.Addr, ":") {
		opts.Addr = opts.Addr + ":" + DefaultPort
	}
	return &Client{opts: opts}
}

// Connect 建立控制连接并登录
// 底层库在服务端支持时自动启用 UTF-8 路径
func (c *Client) Connect(ctx context.Context) error {
	sc, err := goftp.Dial(
		c.opts.Addr,
		goftp.DialWithContext(ctx),
		goftp.DialWithTimeout(c.opts.Timeout),
	)
	if err != nil {
		return fmt.Errorf("无法连接目标 %s: %w", c.opts.Addr, err)
	}

	if err := sc.Login(c.opts.User, c.opts.Password); err != nil {
		sc.Quit()
		return fmt.Errorf("登录失败 (user=%s): %w", c.opts.User, err)
	}

	c.conn = sc
	return nil
}

// Quit 结束会话
func (c *Client) Quit() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	return err
}

// ListDir 列出单层目录内容
// 服务端支持 MLSD 时底层库优先使用，返回 (名字, 类型, 大小) 元组
func (c *Client) ListDir(remoteDir string) ([]*goftp.Entry, error) {
	entries, err := c.conn.List(remoteDir)
	if err != nil {
		return nil, fmt.Errorf("列目录失败 %s: %w", remoteDir, err)
	}
	return entries, nil
}

// MakeDir 创建目录，已存在不算错误
// 部分服务端对已存在目录返回的 550 消息不可辨认，
// 所以失败后用 ChangeDir 探测一次是否其实已存在
// (所有调用方都使用绝对路径，cwd 变化无影响)
func (c *Client) MakeDir(remoteDir string) error {
	if err := c.conn.MakeDir(remoteDir); err != nil {
		if cdErr := c.conn.ChangeDir(remoteDir); cdErr == nil {
			return nil
		}
		return fmt.Errorf("创建目录失败 %s: %w", remoteDir, err)
	}
	return nil
}

// RemoveDir 删除目录 (必须已为空)
func (c *Client) RemoveDir(remoteDir string) error {
	if err := c.conn.RemoveDir(remoteDir); err != nil {
		return fmt.Errorf("删除目录失败 %s: %w", remoteDir, err)
	}
	return nil
}

// Delete 删除文件
func (c *Client) Delete(remotePath string) error {
	if err := c.conn.Delete(remotePath); err != nil {
		return fmt.Errorf("删除文件失败 %s: %w", remotePath, err)
	}
	return nil
}

// Upload 上传文件流 (STOR)
func (c *Client) Upload(remotePath string, stream io.Reader) error {
	if err := c.conn.Stor(remotePath, stream); err != nil {
		return fmt.Errorf("上传失败 %s: %w", remotePath, err)
	}
	return nil
}
