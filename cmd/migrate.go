package cmd

import (
	"fmt"

	"soundhub/db"
	"soundhub/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移",
	Long:  `使用 GORM AutoMigrate 创建或更新所有数据表。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrate(gdb); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("数据库迁移完成", logger.String("database", cfg.DBName))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
