package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfig 配置缺失或非法 (在任何网络活动之前失败)
var ErrConfig = errors.New("配置错误")

// Config 对应 config.yaml 的根结构
type Config struct {
	Sync   SyncConfig   `yaml:"sync"`
	System SystemConfig `yaml:"system"`
}

// SyncConfig 同步相关配置
type SyncConfig struct {
	// 本地源目录 (数据源，始终以它为准)
	SourceDir string `yaml:"source_dir"`
	// 目标地址，host 或 host:port
	Target string `yaml:"target"`
	// 目标上的同步根目录
	TargetDir string `yaml:"target_dir"`
	// FTP 登录凭据，留空则匿名登录
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SystemConfig 系统配置
type SystemConfig struct {
	// 运行记录数据库路径，留空则不记录
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Overrides 命令行参数对配置文件的覆盖项 (全部可选)
type Overrides struct {
	SourceDir string
	Target    string
	TargetDir string
}

// LoadConfig 读取并解析配置文件，随后套用命令行覆盖项并校验
func LoadConfig(path string, ov Overrides) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取配置文件失败: %w", ErrConfig, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: 解析 YAML 格式错误: %w", ErrConfig, err)
	}

	// 命令行参数优先于配置文件
	if ov.SourceDir != "" {
		cfg.Sync.SourceDir = ov.SourceDir
	}
	if ov.Target != "" {
		cfg.Sync.Target = ov.Target
	}
	if ov.TargetDir != "" {
		cfg.Sync.TargetDir = ov.TargetDir
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Sync.SourceDir == "" {
		return fmt.Errorf("%w: 缺少源目录 (sync.source_dir)", ErrConfig)
	}
	if c.Sync.Target == "" {
		return fmt.Errorf("%w: 缺少目标地址 (sync.target)", ErrConfig)
	}
	if c.Sync.TargetDir == "" {
		return fmt.Errorf("%w: 缺少目标目录 (sync.target_dir)", ErrConfig)
	}

	// 目标目录统一为绝对路径风格，空串和相对写法在后续拼接时易出错
	if !strings.HasPrefix(c.Sync.TargetDir, "/") {
		c.Sync.TargetDir = "/" + c.Sync.TargetDir
	}
	return nil
}
