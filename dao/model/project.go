package model

import (
	"time"

	"gorm.io/gorm"
)

// Project 学生项目，一名学生同时至多持有一个未被拒绝的项目
type Project struct {
	gorm.Model
	StudentID uint `gorm:"index;not null;comment:学生ID"`
	Student   User `gorm:"foreignKey:StudentID"`

	SupervisorID *uint `gorm:"index;comment:导师ID"`
	Supervisor   *User `gorm:"foreignKey:SupervisorID"`

	Title       string        `gorm:"type:varchar(200);not null;comment:项目标题"`
	Description string        `gorm:"type:varchar(2000);not null;comment:项目描述"`
	Status      ProjectStatus `gorm:"index;type:varchar(32);not null;default:pending;comment:项目状态"`
	Deadline    *time.Time    `gorm:"comment:项目截止时间"`

	Files    []ProjectFile `gorm:"foreignKey:ProjectID"`
	Feedback []Feedback    `gorm:"foreignKey:ProjectID"`
}

// ProjectFile 上传文件元数据，文件本体存放在对象存储
type ProjectFile struct {
	gorm.Model
	ProjectID    uint      `gorm:"index;not null;comment:项目ID"`
	FileType     string    `gorm:"type:varchar(64);not null;comment:文件类型"`
	FileURL      string    `gorm:"type:varchar(512);not null;comment:下载地址"`
	StorageID    string    `gorm:"type:varchar(128);not null;comment:对象存储ID"`
	OriginalName string    `gorm:"type:varchar(256);not null;comment:原始文件名"`
	UploadedAt   time.Time `gorm:"not null;comment:上传时间"`
}

// Feedback 导师反馈，创建后不可修改
type Feedback struct {
	gorm.Model
	ProjectID    uint         `gorm:"index;not null;comment:项目ID"`
	SupervisorID uint         `gorm:"not null;comment:导师ID"`
	Supervisor   User         `gorm:"foreignKey:SupervisorID"`
	Type         FeedbackType `gorm:"type:varchar(32);not null;default:general;comment:反馈类型"`
	Title        string       `gorm:"type:varchar(200);not null;comment:反馈标题"`
	Message      string       `gorm:"type:varchar(2000);not null;comment:反馈内容"`
}
