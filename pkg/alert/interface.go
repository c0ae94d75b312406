package alert

import (
	"context"
	"time"

	"github.com/fyp-lab/mentor/dao/model"
)

// AlertMgr 是封装好的邮件通知组件，覆盖以下场景：
//  1. 导师接受申请通知
//  2. 导师拒绝申请通知
//  3. 管理员直接分配导师通知
//  4. 项目截止日期提醒
//  5. 密码重置链接
type AlertInterface interface {
	RequestAccepted(ctx context.Context, student, supervisor *model.User) error
	RequestRejected(ctx context.Context, student, supervisor *model.User) error
	SupervisorAssigned(ctx context.Context, student, supervisor *model.User) error
	DeadlineReminder(ctx context.Context, student *model.User, project *model.Project, due time.Time) error
	PasswordReset(ctx context.Context, user *model.User, resetURL string) error
}

// alertHandlerInterface 是具体的通知组件对外部提供的接口，SMTP 或其他渠道都应该实现它
type alertHandlerInterface interface {
	SendMessageTo(ctx context.Context, receiver *model.User, subject, body string) error
}
