package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post 定义了博客文章模型，Content 为 Markdown 正文
type Post struct {
	gorm.Model
	Slug        string `gorm:"size:160;uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Summary     string
	Content     string `gorm:"type:text"`
	CoverURL    string
	Category    string `gorm:"size:80;index"`
	Tags        string `gorm:"size:500"`
	Status      string `gorm:"size:20;index;not null;default:draft"`
	ReadingTime int
	PublishedAt *time.Time
}

// TagList 将逗号分隔的标签拆分为去重后的切片。
func (p Post) TagList() []string {
	return SplitTags(p.Tags)
}

// SplitTags 解析逗号分隔的标签串，忽略空值并保持首次出现的顺序。
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
