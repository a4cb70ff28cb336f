package cmd

import (
	"context"
	"fmt"
	"time"

	"soundhub/media"
	"soundhub/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶查看",
	Long:  `列出存储桶中的媒体文件，或按媒体目录显示统计信息。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.StorageEndpoint, cfg.StorageBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if minioStats {
			// 空 base URL 的注册表给出的是对象 key 前缀
			prefixes := media.NewRegistry("", media.Dirs{
				TrackAudio:  cfg.MusicTrackDir,
				TrackImage:  cfg.ImagesTrackDir,
				SetImage:    cfg.ImagesSetDir,
				UserProfile: cfg.ImagesUserProfileDir,
				UserHeader:  cfg.ImagesUserHeaderDir,
			}).BasePaths()
			if minioPrefix != "" {
				prefixes = []string{minioPrefix}
			}

			stats, err := store.Stats(ctx, prefixes)
			if err != nil {
				return fmt.Errorf("获取存储桶统计信息失败: %w", err)
			}
			fmt.Printf("\n%-40s %10s %12s  %s\n", "PREFIX", "OBJECTS", "SIZE", "LAST MODIFIED")
			for _, s := range stats {
				last := "-"
				if !s.LastModified.IsZero() {
					last = s.LastModified.Format(time.RFC3339)
				}
				fmt.Printf("%-40s %10d %12s  %s\n", s.Prefix, s.TotalObjects, storage.FormatSize(s.TotalSize), last)
			}
			return nil
		}

		objects, err := store.ListObjects(ctx, minioPrefix)
		if err != nil {
			return fmt.Errorf("列出文件失败: %w", err)
		}
		for _, obj := range objects {
			fmt.Printf("%-60s %12s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format(time.RFC3339))
		}
		fmt.Printf("\n共 %d 个文件\n", len(objects))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "按媒体目录显示统计信息")

	minioCmd.Example = `  # 列出所有文件
  soundhub minio

  # 按前缀过滤文件
  soundhub minio -p "music/track/"

  # 显示各媒体目录的统计信息
  soundhub minio -s`
}
