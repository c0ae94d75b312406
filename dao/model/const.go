// 定义与数据库表字段对应的常量
// 状态字段统一使用字符串枚举，与前端展示值保持一致
package model

// Role 平台角色
type Role string

const (
	RoleStudent Role = "Student" // 学生
	RoleTeacher Role = "Teacher" // 导师
	RoleAdmin   Role = "Admin"   // 管理员
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectPending   ProjectStatus = "pending"   // 待审批
	ProjectApproved  ProjectStatus = "approved"  // 已批准
	ProjectRejected  ProjectStatus = "rejected"  // 已拒绝
	ProjectCompleted ProjectStatus = "completed" // 已完成
)

// RequestStatus 导师申请状态
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCompleted RequestStatus = "completed"
)

// FeedbackType 反馈类型
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNegative FeedbackType = "negative"
	FeedbackGeneral  FeedbackType = "general"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyRequest   NotificationType = "request"
	NotifyApproval  NotificationType = "approval"
	NotifyRejection NotificationType = "rejection"
	NotifyFeedback  NotificationType = "feedback"
	NotifyDeadline  NotificationType = "deadline"
	NotifyGeneral   NotificationType = "general"
	NotifyMeeting   NotificationType = "meeting"
	NotifySystem    NotificationType = "system"
)

// Priority 通知优先级
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)
