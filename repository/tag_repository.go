package repository

import (
	"soundhub/model"

	"gorm.io/gorm"
)

// firstOrCreateTags 在事务内按名称查找或创建标签，并回填 genreID。
// 总是按名称查询，事务回滚后重试也能拿到有效的 ID。
func firstOrCreateTags(tx *gorm.DB, genre *model.Tag, genreID **int64, tags []*model.Tag) error {
	for _, tag := range append([]*model.Tag{genre}, tags...) {
		if tag == nil {
			continue
		}
		var found model.Tag
		if err := tx.Where(model.Tag{Name: tag.Name}).FirstOrCreate(&found).Error; err != nil {
			return err
		}
		*tag = found
	}
	if genre != nil {
		id := genre.ID
		*genreID = &id
	}
	return nil
}
