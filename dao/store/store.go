// Package store provides the data-access layer. Handlers and the
// supervision workflow depend on these interfaces only; the gorm
// implementation backs production and an in-memory fake backs tests.
package store

import (
	"context"
	"time"

	"github.com/fyp-lab/mentor/dao/model"
)

// Stores bundles the per-entity stores. Atomic runs fn against a
// transactional view of the same stores; the callback's writes commit or
// roll back together.
type Stores interface {
	Users() UserStore
	Projects() ProjectStore
	Requests() RequestStore
	Notifications() NotificationStore
	Deadlines() DeadlineStore

	Atomic(ctx context.Context, fn func(Stores) error) error
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByIDAndRole(ctx context.Context, id uint, role model.Role) (*model.User, error)
	GetByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)

	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	ListNonAdmin(ctx context.Context) ([]model.User, error)
	ListBySupervisor(ctx context.Context, supervisorID uint) ([]model.User, error)

	CountByRole(ctx context.Context, role model.Role) (int64, error)
	CountBySupervisor(ctx context.Context, supervisorID uint) (int64, error)

	// DetachSupervisor clears supervisor_id on every student assigned to
	// the given teacher.
	DetachSupervisor(ctx context.Context, supervisorID uint) error
}

type ProjectStore interface {
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*model.Project, error)
	GetLatestByStudent(ctx context.Context, studentID uint) (*model.Project, error)

	ListAll(ctx context.Context) ([]model.Project, error)
	ListBySupervisor(ctx context.Context, supervisorID uint) ([]model.Project, error)
	ListUpcomingByStudent(ctx context.Context, studentID uint, now time.Time, limit int) ([]model.Project, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Project, error)

	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.ProjectStatus) (int64, error)
	CountBySupervisorAndStatus(ctx context.Context, supervisorID uint, status model.ProjectStatus) (int64, error)

	AddFiles(ctx context.Context, projectID uint, files []model.ProjectFile) error
	AddFeedback(ctx context.Context, fb *model.Feedback) error
	DetachSupervisor(ctx context.Context, supervisorID uint) error
}

type RequestStore interface {
	Create(ctx context.Context, req *model.SupervisorRequest) error
	Update(ctx context.Context, req *model.SupervisorRequest) error

	GetByID(ctx context.Context, id uint) (*model.SupervisorRequest, error)
	GetPendingByPair(ctx context.Context, studentID, supervisorID uint) (*model.SupervisorRequest, error)
	DeleteRejectedByPair(ctx context.Context, studentID, supervisorID uint) error

	ListBySupervisor(ctx context.Context, supervisorID uint) ([]model.SupervisorRequest, error)
	CountPending(ctx context.Context) (int64, error)
	CountPendingBySupervisor(ctx context.Context, supervisorID uint) (int64, error)

	// RejectOtherPending bulk-transitions the student's other pending
	// requests to rejected (supersession).
	RejectOtherPending(ctx context.Context, studentID, exceptID uint) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error

	ListByUser(ctx context.Context, userID uint) ([]model.Notification, error)
	ListLatestByUser(ctx context.Context, userID uint, limit int) ([]model.Notification, error)
	ListByTypes(ctx context.Context, types []model.NotificationType) ([]model.Notification, error)
	ListUnreadSince(ctx context.Context, userID uint, since time.Time) ([]model.Notification, error)

	// The mutators below are scoped to the owning user: an id belonging
	// to another user behaves as if the row does not exist.
	MarkRead(ctx context.Context, id, userID uint) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) error
	Delete(ctx context.Context, id, userID uint) error
	DeleteAll(ctx context.Context, userID uint) error
}

type DeadlineStore interface {
	Create(ctx context.Context, d *model.Deadline) error
	Update(ctx context.Context, d *model.Deadline) error
	GetByID(ctx context.Context, id uint) (*model.Deadline, error)
	ListByProject(ctx context.Context, projectID uint) ([]model.Deadline, error)
}
