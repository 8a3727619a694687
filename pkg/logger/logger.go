package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup 初始化全局日志配置
// levelStr: "debug", "info", "warn", "error"
// logPath: 日志文件路径 (如果为空则只输出到控制台)
func Setup(levelStr string, logPath string) error {
	// 1. 解析日志等级
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// 2. 配置输出目标 (Writer)
	var writer io.Writer = os.Stdout

	if logPath != "" {
		// 确保日志目录存在
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return err
		}

		// 打开日志文件 (追加模式)
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}

		// 使用 MultiWriter 同时输出到控制台和文件
		writer = io.MultiWriter(os.Stdout, file)
	}

	// 3. 创建 Handler
	// 只输出到终端时用 tint 彩色格式，重定向或带日志文件时退回 TextHandler
	var handler slog.Handler
	if logPath == "" && isatty.IsTerminal(os.Stdout.Fd()) {
		handler = tint.NewHandler(writer, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			AddSource:  level == slog.LevelDebug,
		})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug, // 仅在 Debug 模式下显示文件名和行号
		})
	}

	// 4. 设置为全局默认 Logger
	slog.SetDefault(slog.New(handler))

	return nil
}
