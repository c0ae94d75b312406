package model

import (
	"time"

	"gorm.io/gorm"
)

// Deadline 管理员为项目设置的里程碑，冗余写入 Project.Deadline
type Deadline struct {
	gorm.Model
	Name    string    `gorm:"type:varchar(100);not null;comment:名称"`
	DueDate time.Time `gorm:"index;not null;comment:截止时间"`

	CreatedBy uint `gorm:"index;not null;comment:创建者ID"`
	Creator   User `gorm:"foreignKey:CreatedBy"`

	ProjectID uint    `gorm:"index:idx_deadline_project_due;not null;comment:项目ID"`
	Project   Project `gorm:"foreignKey:ProjectID"`
}
