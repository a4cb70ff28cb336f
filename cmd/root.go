package cmd

import (
	"soundhub/config"
	"soundhub/logger"
	"soundhub/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "soundhub",
	Short: "soundhub is a social audio platform API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(loadConfig())
	},
}

// loadConfig 加载配置并初始化日志
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})
	return cfg
}

// Execute executes the root command. cobra prints the error itself; Fatal
// records it in the log and exits non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("命令执行失败", logger.ErrorField(err))
	}
	logger.Sync()
}
