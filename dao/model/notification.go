package model

import (
	"gorm.io/gorm"
)

// Notification 站内通知，仅 IsRead 位可变
type Notification struct {
	gorm.Model
	UserID   uint             `gorm:"index;not null;comment:接收者ID"`
	Message  string           `gorm:"type:varchar(500);not null;comment:通知内容"`
	Type     NotificationType `gorm:"type:varchar(32);not null;default:general;comment:通知类型"`
	Priority Priority         `gorm:"type:varchar(16);not null;default:low;comment:优先级"`
	IsRead   bool             `gorm:"index;not null;default:false;comment:是否已读"`
	Link     *string          `gorm:"type:varchar(256);comment:跳转链接"`
}
