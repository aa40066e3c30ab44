package db

import "gorm.io/gorm"

const (
	BackupRunning   = "running"
	BackupCompleted = "completed"
	BackupFailed    = "failed"

	IPRuleBlock = "block"
	IPRuleAllow = "allow"
)

// Backup 记录一次数据导出
type Backup struct {
	gorm.Model
	FileName  string `gorm:"size:255;not null"`
	SizeBytes int64
	Status    string `gorm:"size:20;index;not null"`
	Error     string
}

// SecurityLog 记录登录、二次验证与访问规则相关事件
type SecurityLog struct {
	gorm.Model
	Event    string `gorm:"size:50;index;not null"`
	Username string `gorm:"size:100;index"`
	IP       string `gorm:"size:64"`
	Detail   string
}

// IPRule 按 IP 或 CIDR 放行/拦截请求
type IPRule struct {
	gorm.Model
	CIDR   string `gorm:"size:64;uniqueIndex;not null"`
	Action string `gorm:"size:10;not null"`
	Note   string
}
