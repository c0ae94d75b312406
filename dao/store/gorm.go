package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyp-lab/mentor/dao/model"
)

// NewGormStores wraps a gorm connection in the Stores interface.
func NewGormStores(db *gorm.DB) Stores {
	return &gormStores{db: db}
}

type gormStores struct {
	db *gorm.DB
}

func (s *gormStores) Users() UserStore                 { return &gormUserStore{db: s.db} }
func (s *gormStores) Projects() ProjectStore           { return &gormProjectStore{db: s.db} }
func (s *gormStores) Requests() RequestStore           { return &gormRequestStore{db: s.db} }
func (s *gormStores) Notifications() NotificationStore { return &gormNotificationStore{db: s.db} }
func (s *gormStores) Deadlines() DeadlineStore         { return &gormDeadlineStore{db: s.db} }

func (s *gormStores) Atomic(ctx context.Context, fn func(Stores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStores{db: tx})
	})
}

type gormUserStore struct {
	db *gorm.DB
}

func (s *gormUserStore) Create(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (s *gormUserStore) Update(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (s *gormUserStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.User{}, id).Error
}

func (s *gormUserStore) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Preload("Supervisor").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetByIDAndRole(ctx context.Context, id uint, role model.Role) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ? AND role = ?", id, role).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ? AND role = ?", email, role).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", tokenHash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Where("role = ?", role).Order("created_at DESC").Find(&users).Error
	return users, err
}

func (s *gormUserStore) ListNonAdmin(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Preload("Supervisor").
		Where("role <> ?", model.RoleAdmin).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

func (s *gormUserStore) ListBySupervisor(ctx context.Context, supervisorID uint) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("supervisor_id = ?", supervisorID).
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

func (s *gormUserStore) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (s *gormUserStore) CountBySupervisor(ctx context.Context, supervisorID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("supervisor_id = ?", supervisorID).
		Count(&count).Error
	return count, err
}

func (s *gormUserStore) DetachSupervisor(ctx context.Context, supervisorID uint) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("supervisor_id = ?", supervisorID).
		Update("supervisor_id", nil).Error
}

type gormProjectStore struct {
	db *gorm.DB
}

func (s *gormProjectStore) Create(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

func (s *gormProjectStore) Update(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

func (s *gormProjectStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Project{}, id).Error
}

func (s *gormProjectStore) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Preload("Files").
		Preload("Feedback", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Feedback.Supervisor")
}

func (s *gormProjectStore) GetByID(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	err := s.preloaded(ctx).First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *gormProjectStore) GetLatestByStudent(ctx context.Context, studentID uint) (*model.Project, error) {
	var project model.Project
	err := s.preloaded(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *gormProjectStore) ListAll(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (s *gormProjectStore) ListBySupervisor(ctx context.Context, supervisorID uint) ([]model.Project, error) {
	var projects []model.Project
	err := s.preloaded(ctx).
		Where("supervisor_id = ?", supervisorID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (s *gormProjectStore) ListUpcomingByStudent(
	ctx context.Context, studentID uint, now time.Time, limit int,
) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.WithContext(ctx).
		Preload("Supervisor").
		Where("student_id = ? AND deadline >= ?", studentID, now).
		Order("deadline ASC").
		Limit(limit).
		Find(&projects).Error
	return projects, err
}

func (s *gormProjectStore) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.WithContext(ctx).
		Preload("Student").
		Where("deadline >= ? AND deadline <= ?", from, to).
		Where("status NOT IN ?", []model.ProjectStatus{model.ProjectCompleted, model.ProjectRejected}).
		Order("deadline ASC").
		Find(&projects).Error
	return projects, err
}

func (s *gormProjectStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Project{}).Count(&count).Error
	return count, err
}

func (s *gormProjectStore) CountByStatus(ctx context.Context, status model.ProjectStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Project{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (s *gormProjectStore) CountBySupervisorAndStatus(
	ctx context.Context, supervisorID uint, status model.ProjectStatus,
) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Project{}).
		Where("supervisor_id = ? AND status = ?", supervisorID, status).
		Count(&count).Error
	return count, err
}

func (s *gormProjectStore) AddFiles(ctx context.Context, projectID uint, files []model.ProjectFile) error {
	for i := range files {
		files[i].ProjectID = projectID
	}
	return s.db.WithContext(ctx).Create(&files).Error
}

func (s *gormProjectStore) AddFeedback(ctx context.Context, fb *model.Feedback) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(fb).Error
}

func (s *gormProjectStore) DetachSupervisor(ctx context.Context, supervisorID uint) error {
	return s.db.WithContext(ctx).Model(&model.Project{}).
		Where("supervisor_id = ?", supervisorID).
		Update("supervisor_id", nil).Error
}

type gormRequestStore struct {
	db *gorm.DB
}

func (s *gormRequestStore) Create(ctx context.Context, req *model.SupervisorRequest) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (s *gormRequestStore) Update(ctx context.Context, req *model.SupervisorRequest) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(req).Error
}

func (s *gormRequestStore) GetByID(ctx context.Context, id uint) (*model.SupervisorRequest, error) {
	var req model.SupervisorRequest
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *gormRequestStore) GetPendingByPair(
	ctx context.Context, studentID, supervisorID uint,
) (*model.SupervisorRequest, error) {
	var req model.SupervisorRequest
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND supervisor_id = ? AND status = ?",
			studentID, supervisorID, model.RequestPending).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *gormRequestStore) DeleteRejectedByPair(ctx context.Context, studentID, supervisorID uint) error {
	return s.db.WithContext(ctx).
		Where("student_id = ? AND supervisor_id = ? AND status = ?",
			studentID, supervisorID, model.RequestRejected).
		Delete(&model.SupervisorRequest{}).Error
}

func (s *gormRequestStore) ListBySupervisor(ctx context.Context, supervisorID uint) ([]model.SupervisorRequest, error) {
	var reqs []model.SupervisorRequest
	err := s.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Where("supervisor_id = ?", supervisorID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (s *gormRequestStore) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.SupervisorRequest{}).
		Where("status = ?", model.RequestPending).
		Count(&count).Error
	return count, err
}

func (s *gormRequestStore) CountPendingBySupervisor(ctx context.Context, supervisorID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.SupervisorRequest{}).
		Where("supervisor_id = ? AND status = ?", supervisorID, model.RequestPending).
		Count(&count).Error
	return count, err
}

func (s *gormRequestStore) RejectOtherPending(ctx context.Context, studentID, exceptID uint) error {
	return s.db.WithContext(ctx).Model(&model.SupervisorRequest{}).
		Where("student_id = ? AND status = ? AND id <> ?", studentID, model.RequestPending, exceptID).
		Update("status", model.RequestRejected).Error
}

type gormNotificationStore struct {
	db *gorm.DB
}

func (s *gormNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *gormNotificationStore) ListByUser(ctx context.Context, userID uint) ([]model.Notification, error) {
	var ns []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ns).Error
	return ns, err
}

func (s *gormNotificationStore) ListLatestByUser(ctx context.Context, userID uint, limit int) ([]model.Notification, error) {
	var ns []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}

func (s *gormNotificationStore) ListByTypes(
	ctx context.Context, types []model.NotificationType,
) ([]model.Notification, error) {
	var ns []model.Notification
	err := s.db.WithContext(ctx).
		Where("type IN ?", types).
		Order("created_at DESC").
		Find(&ns).Error
	return ns, err
}

func (s *gormNotificationStore) ListUnreadSince(
	ctx context.Context, userID uint, since time.Time,
) ([]model.Notification, error) {
	var ns []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ? AND created_at > ?", userID, false, since).
		Order("created_at ASC").
		Find(&ns).Error
	return ns, err
}

func (s *gormNotificationStore) MarkRead(ctx context.Context, id, userID uint) (*model.Notification, error) {
	var n model.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, err
	}
	n.IsRead = true
	if err := s.db.WithContext(ctx).Save(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *gormNotificationStore) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *gormNotificationStore) Delete(ctx context.Context, id, userID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *gormNotificationStore) DeleteAll(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Notification{}).Error
}

type gormDeadlineStore struct {
	db *gorm.DB
}

func (s *gormDeadlineStore) Create(ctx context.Context, d *model.Deadline) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(d).Error
}

func (s *gormDeadlineStore) Update(ctx context.Context, d *model.Deadline) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(d).Error
}

func (s *gormDeadlineStore) GetByID(ctx context.Context, id uint) (*model.Deadline, error) {
	var d model.Deadline
	err := s.db.WithContext(ctx).
		Preload("Creator").
		Preload("Project").
		First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *gormDeadlineStore) ListByProject(ctx context.Context, projectID uint) ([]model.Deadline, error) {
	var ds []model.Deadline
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("due_date ASC").
		Find(&ds).Error
	return ds, err
}
