package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is the basic entity of the system
type User struct {
	gorm.Model
	Name     string  `gorm:"type:varchar(64);not null;comment:姓名"`
	Email    string  `gorm:"uniqueIndex;type:varchar(128);not null;comment:邮箱"`
	Password *string `gorm:"type:varchar(128);comment:密码哈希" json:"-"`
	Role     Role    `gorm:"type:varchar(32);not null;default:Student;comment:平台角色 (Student, Teacher, Admin)"`

	Department *string                     `gorm:"type:varchar(128);comment:院系"`
	Expertise  datatypes.JSONSlice[string] `gorm:"comment:导师研究方向"`

	// Teacher only: maximum number of students supervised concurrently.
	// The current assignment count is derived from users.supervisor_id,
	// it is never stored.
	MaxStudents int `gorm:"type:int;not null;default:10;comment:导师可带学生上限"`

	// Student only
	SupervisorID *uint `gorm:"index;comment:导师ID"`
	Supervisor   *User `gorm:"foreignKey:SupervisorID"`

	ResetPasswordToken  *string    `gorm:"type:varchar(64);comment:密码重置令牌(sha256)" json:"-"`
	ResetPasswordExpire *time.Time `gorm:"comment:密码重置令牌过期时间" json:"-"`
}

// UserInfo is the subset embedded in responses that reference a user.
type UserInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}
}
