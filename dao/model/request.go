package model

import (
	"gorm.io/gorm"
)

// SupervisorRequest 学生发起的导师申请
// 同一 (student, supervisor) 至多存在一条 pending 记录
type SupervisorRequest struct {
	gorm.Model
	StudentID uint `gorm:"index:idx_request_pair;not null;comment:学生ID"`
	Student   User `gorm:"foreignKey:StudentID"`

	SupervisorID uint `gorm:"index:idx_request_pair;index:idx_request_supervisor_status;not null;comment:导师ID"`
	Supervisor   User `gorm:"foreignKey:SupervisorID"`

	Message string        `gorm:"type:varchar(500);not null;comment:申请留言"`
	Status  RequestStatus `gorm:"index:idx_request_supervisor_status;type:varchar(32);not null;default:pending;comment:申请状态"`
}
