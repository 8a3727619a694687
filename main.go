package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ftpsync/internal/config"
	"ftpsync/internal/database"
	"ftpsync/internal/fs"
	"ftpsync/internal/fs/ftp"
	"ftpsync/internal/fs/local"
	syncer "ftpsync/internal/sync"
	"ftpsync/pkg/logger"
)

var (
	flagConfig    string
	flagSourceDir string
	flagTarget    string
	flagTargetDir string
	flagYes       bool
	flagLimit     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ftpsync",
		Short: "将本地目录单向同步到 FTP 目标 (本地为准，本地的变化会被镜像)",
		Long: "将本地目录单向同步到 FTP 目标。本地为准: 远端缺少的条目会被上传，\n" +
			"本地已不存在的条目会从远端删除。参数都是可选的，覆盖配置文件中的设置。",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSync,
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c",
		"config/config.yaml", "配置文件路径")
	rootCmd.Flags().StringVar(&flagSourceDir, "source-dir", "", "源目录 (覆盖配置)")
	rootCmd.Flags().StringVar(&flagTarget, "target", "", "目标地址 (覆盖配置)")
	rootCmd.Flags().StringVar(&flagTargetDir, "target-dir", "", "目标目录 (覆盖配置)")
	rootCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "跳过所有确认提示")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "查看最近的同步运行记录",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&flagLimit, "limit", "n", 10, "显示条数")
	rootCmd.AddCommand(historyCmd)

	// 唯一的取消点是删除确认关卡；信号只在连接建立前生效
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(flagConfig, config.Overrides{
		SourceDir: flagSourceDir,
		Target:    flagTarget,
		TargetDir: flagTargetDir,
	})
	if err != nil {
		return err
	}

	if err := logger.Setup(cfg.System.LogLevel, cfg.System.LogFile); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}

	slog.Info("ftpsync 启动",
		"source_dir", cfg.Sync.SourceDir,
		"target", cfg.Sync.Target,
		"target_dir", cfg.Sync.TargetDir,
	)

	var historyDB *database.DB
	if cfg.System.DBPath != "" {
		historyDB, err = database.NewBoltDB(cfg.System.DBPath)
		if err != nil {
			return fmt.Errorf("无法打开运行记录数据库: %w", err)
		}
		defer historyDB.Close()
	}

	localFS := local.NewAdapter(cfg.Sync.SourceDir)
	client := ftp.NewClient(&ftp.Options{
		Addr:     cfg.Sync.Target,
		User:     cfg.Sync.User,
		Password: cfg.Sync.Password,
	})
	remoteFS := ftp.NewAdapter(client, cfg.Sync.TargetDir)

	engine := syncer.NewEngine(&syncer.EngineOptions{
		LocalFS:  localFS,
		RemoteFS: remoteFS,
		History:  historyDB,
		ConfirmWipe: func() bool {
			return confirm("源 (本地) 目录为空，确定要删除目标上的所有内容吗?")
		},
		ConfirmRemove: func(remove []*fs.PathEntry) bool {
			return confirm(fmt.Sprintf("将从目标删除 %d 个条目，继续吗?", len(remove)))
		},
	})

	report, err := engine.Run(cmd.Context())
	if err != nil {
		return err
	}
	if report.Cancelled {
		return nil
	}

	slog.Info("同步完成",
		"duration", report.Duration.Round(time.Millisecond).String(),
		"added", report.Added,
		"removed", report.Removed,
		"transferred", humanize.Bytes(uint64(report.BytesTransferred)),
	)
	return nil
}

// confirm 交互确认关卡，--yes 直接放行
func confirm(prompt string) bool {
	if flagYes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(flagConfig, config.Overrides{})
	if err != nil {
		return err
	}
	if cfg.System.DBPath == "" {
		return fmt.Errorf("未配置运行记录数据库 (system.db_path)")
	}

	db, err := database.NewBoltDB(cfg.System.DBPath)
	if err != nil {
		return fmt.Errorf("无法打开运行记录数据库: %w", err)
	}
	defer db.Close()

	records, err := db.Recent(flagLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("暂无运行记录")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s  +%d -%d  %s  %s -> %s  (%s)\n",
			r.StartedAtTime().Format(time.DateTime),
			r.Added, r.Removed,
			humanize.Bytes(uint64(r.BytesTransferred)),
			r.SourceDir, r.TargetDir,
			time.Duration(r.DurationMillis)*time.Millisecond,
		)
	}
	return nil
}
