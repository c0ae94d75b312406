package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/fyp-lab/mentor/dao/model"
)

// NewInMemStores returns a map-backed Stores used by tests. Atomic
// serializes callbacks behind the same mutex as the individual calls, so
// transactional callers see the same isolation as in production; partial
// rollback is not simulated.
func NewInMemStores() Stores {
	db := &memDB{
		clock:         time.Now(),
		users:         make(map[uint]model.User),
		projects:      make(map[uint]model.Project),
		files:         make(map[uint]model.ProjectFile),
		feedback:      make(map[uint]model.Feedback),
		requests:      make(map[uint]model.SupervisorRequest),
		notifications: make(map[uint]model.Notification),
		deadlines:     make(map[uint]model.Deadline),
	}
	return &memStores{db: db, locked: false}
}

type memDB struct {
	mu     sync.Mutex
	nextID uint
	clock  time.Time

	users         map[uint]model.User
	projects      map[uint]model.Project
	files         map[uint]model.ProjectFile
	feedback      map[uint]model.Feedback
	requests      map[uint]model.SupervisorRequest
	notifications map[uint]model.Notification
	deadlines     map[uint]model.Deadline
}

// stamp assigns an id and a strictly increasing creation time so that
// "newest first" orderings are deterministic in tests.
func (db *memDB) stamp() (uint, time.Time) {
	db.nextID++
	db.clock = db.clock.Add(time.Millisecond)
	return db.nextID, db.clock
}

type memStores struct {
	db *memDB
	// locked is true inside an Atomic callback, where the mutex is
	// already held by the caller.
	locked bool
}

func (s *memStores) lock() func() {
	if s.locked {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *memStores) Users() UserStore                 { return &memUserStore{s} }
func (s *memStores) Projects() ProjectStore           { return &memProjectStore{s} }
func (s *memStores) Requests() RequestStore           { return &memRequestStore{s} }
func (s *memStores) Notifications() NotificationStore { return &memNotificationStore{s} }
func (s *memStores) Deadlines() DeadlineStore         { return &memDeadlineStore{s} }

func (s *memStores) Atomic(_ context.Context, fn func(Stores) error) error {
	defer s.lock()()
	return fn(&memStores{db: s.db, locked: true})
}

func (s *memStores) userCopy(id uint) *model.User {
	if u, ok := s.db.users[id]; ok {
		return &u
	}
	return nil
}

func (s *memStores) fillProject(p model.Project) model.Project {
	if u := s.userCopy(p.StudentID); u != nil {
		p.Student = *u
	}
	if p.SupervisorID != nil {
		p.Supervisor = s.userCopy(*p.SupervisorID)
	}
	p.Files = nil
	for _, f := range s.db.files {
		if f.ProjectID == p.ID {
			p.Files = append(p.Files, f)
		}
	}
	p.Feedback = nil
	for _, fb := range s.db.feedback {
		if fb.ProjectID == p.ID {
			if u := s.userCopy(fb.SupervisorID); u != nil {
				fb.Supervisor = *u
			}
			p.Feedback = append(p.Feedback, fb)
		}
	}
	sort.Slice(p.Files, func(i, j int) bool { return p.Files[i].ID < p.Files[j].ID })
	sort.Slice(p.Feedback, func(i, j int) bool { return p.Feedback[i].ID > p.Feedback[j].ID })
	return p
}

type memUserStore struct {
	s *memStores
}

func (m *memUserStore) Create(_ context.Context, user *model.User) error {
	defer m.s.lock()()
	for _, u := range m.s.db.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	id, at := m.s.db.stamp()
	user.ID = id
	user.CreatedAt = at
	user.UpdatedAt = at
	m.s.db.users[id] = *user
	return nil
}

func (m *memUserStore) Update(_ context.Context, user *model.User) error {
	defer m.s.lock()()
	if _, ok := m.s.db.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now()
	m.s.db.users[user.ID] = *user
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id uint) error {
	defer m.s.lock()()
	delete(m.s.db.users, id)
	return nil
}

func (m *memUserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	defer m.s.lock()()
	u, ok := m.s.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u.SupervisorID != nil {
		u.Supervisor = m.s.userCopy(*u.SupervisorID)
	}
	return &u, nil
}

func (m *memUserStore) GetByIDAndRole(_ context.Context, id uint, role model.Role) (*model.User, error) {
	defer m.s.lock()()
	u, ok := m.s.db.users[id]
	if !ok || u.Role != role {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (m *memUserStore) GetByEmailAndRole(_ context.Context, email string, role model.Role) (*model.User, error) {
	defer m.s.lock()()
	for _, u := range m.s.db.users {
		if u.Email == email && u.Role == role {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer m.s.lock()()
	for _, u := range m.s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (*model.User, error) {
	defer m.s.lock()()
	for _, u := range m.s.db.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUserStore) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	defer m.s.lock()()
	var users []model.User
	for _, u := range m.s.db.users {
		if u.Role == role {
			users = append(users, u)
		}
	}
	sortUsersNewest(users)
	return users, nil
}

func (m *memUserStore) ListNonAdmin(_ context.Context) ([]model.User, error) {
	defer m.s.lock()()
	var users []model.User
	for _, u := range m.s.db.users {
		if u.Role != model.RoleAdmin {
			if u.SupervisorID != nil {
				u.Supervisor = m.s.userCopy(*u.SupervisorID)
			}
			users = append(users, u)
		}
	}
	sortUsersNewest(users)
	return users, nil
}

func (m *memUserStore) ListBySupervisor(_ context.Context, supervisorID uint) ([]model.User, error) {
	defer m.s.lock()()
	var users []model.User
	for _, u := range m.s.db.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			users = append(users, u)
		}
	}
	sortUsersNewest(users)
	return users, nil
}

func (m *memUserStore) CountByRole(_ context.Context, role model.Role) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, u := range m.s.db.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (m *memUserStore) CountBySupervisor(_ context.Context, supervisorID uint) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, u := range m.s.db.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			count++
		}
	}
	return count, nil
}

func (m *memUserStore) DetachSupervisor(_ context.Context, supervisorID uint) error {
	defer m.s.lock()()
	for id, u := range m.s.db.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			u.SupervisorID = nil
			m.s.db.users[id] = u
		}
	}
	return nil
}

type memProjectStore struct {
	s *memStores
}

func (m *memProjectStore) Create(_ context.Context, project *model.Project) error {
	defer m.s.lock()()
	id, at := m.s.db.stamp()
	project.ID = id
	project.CreatedAt = at
	project.UpdatedAt = at
	if project.Status == "" {
		project.Status = model.ProjectPending
	}
	stored := *project
	stored.Files = nil
	stored.Feedback = nil
	m.s.db.projects[id] = stored
	return nil
}

func (m *memProjectStore) Update(_ context.Context, project *model.Project) error {
	defer m.s.lock()()
	if _, ok := m.s.db.projects[project.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *project
	stored.Files = nil
	stored.Feedback = nil
	stored.UpdatedAt = time.Now()
	m.s.db.projects[project.ID] = stored
	return nil
}

func (m *memProjectStore) Delete(_ context.Context, id uint) error {
	defer m.s.lock()()
	delete(m.s.db.projects, id)
	return nil
}

func (m *memProjectStore) GetByID(_ context.Context, id uint) (*model.Project, error) {
	defer m.s.lock()()
	p, ok := m.s.db.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p = m.s.fillProject(p)
	return &p, nil
}

func (m *memProjectStore) GetLatestByStudent(_ context.Context, studentID uint) (*model.Project, error) {
	defer m.s.lock()()
	var latest *model.Project
	for _, p := range m.s.db.projects {
		p := p
		if p.StudentID != studentID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = &p
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	filled := m.s.fillProject(*latest)
	return &filled, nil
}

func (m *memProjectStore) ListAll(_ context.Context) ([]model.Project, error) {
	defer m.s.lock()()
	var projects []model.Project
	for _, p := range m.s.db.projects {
		projects = append(projects, m.s.fillProject(p))
	}
	sortProjectsNewest(projects)
	return projects, nil
}

func (m *memProjectStore) ListBySupervisor(_ context.Context, supervisorID uint) ([]model.Project, error) {
	defer m.s.lock()()
	var projects []model.Project
	for _, p := range m.s.db.projects {
		if p.SupervisorID != nil && *p.SupervisorID == supervisorID {
			projects = append(projects, m.s.fillProject(p))
		}
	}
	sortProjectsNewest(projects)
	return projects, nil
}

func (m *memProjectStore) ListUpcomingByStudent(
	_ context.Context, studentID uint, now time.Time, limit int,
) ([]model.Project, error) {
	defer m.s.lock()()
	var projects []model.Project
	for _, p := range m.s.db.projects {
		if p.StudentID == studentID && p.Deadline != nil && !p.Deadline.Before(now) {
			projects = append(projects, m.s.fillProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Deadline.Before(*projects[j].Deadline) })
	if len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, nil
}

func (m *memProjectStore) ListDueBetween(_ context.Context, from, to time.Time) ([]model.Project, error) {
	defer m.s.lock()()
	var projects []model.Project
	for _, p := range m.s.db.projects {
		if p.Deadline == nil || p.Status == model.ProjectCompleted || p.Status == model.ProjectRejected {
			continue
		}
		if !p.Deadline.Before(from) && !p.Deadline.After(to) {
			projects = append(projects, m.s.fillProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Deadline.Before(*projects[j].Deadline) })
	return projects, nil
}

func (m *memProjectStore) CountAll(_ context.Context) (int64, error) {
	defer m.s.lock()()
	return int64(len(m.s.db.projects)), nil
}

func (m *memProjectStore) CountByStatus(_ context.Context, status model.ProjectStatus) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, p := range m.s.db.projects {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *memProjectStore) CountBySupervisorAndStatus(
	_ context.Context, supervisorID uint, status model.ProjectStatus,
) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, p := range m.s.db.projects {
		if p.SupervisorID != nil && *p.SupervisorID == supervisorID && p.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *memProjectStore) AddFiles(_ context.Context, projectID uint, files []model.ProjectFile) error {
	defer m.s.lock()()
	if _, ok := m.s.db.projects[projectID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range files {
		id, at := m.s.db.stamp()
		files[i].ID = id
		files[i].CreatedAt = at
		files[i].ProjectID = projectID
		m.s.db.files[id] = files[i]
	}
	return nil
}

func (m *memProjectStore) AddFeedback(_ context.Context, fb *model.Feedback) error {
	defer m.s.lock()()
	if _, ok := m.s.db.projects[fb.ProjectID]; !ok {
		return gorm.ErrRecordNotFound
	}
	id, at := m.s.db.stamp()
	fb.ID = id
	fb.CreatedAt = at
	m.s.db.feedback[id] = *fb
	return nil
}

func (m *memProjectStore) DetachSupervisor(_ context.Context, supervisorID uint) error {
	defer m.s.lock()()
	for id, p := range m.s.db.projects {
		if p.SupervisorID != nil && *p.SupervisorID == supervisorID {
			p.SupervisorID = nil
			m.s.db.projects[id] = p
		}
	}
	return nil
}

type memRequestStore struct {
	s *memStores
}

func (m *memRequestStore) Create(_ context.Context, req *model.SupervisorRequest) error {
	defer m.s.lock()()
	id, at := m.s.db.stamp()
	req.ID = id
	req.CreatedAt = at
	if req.Status == "" {
		req.Status = model.RequestPending
	}
	stored := *req
	stored.Student = model.User{}
	stored.Supervisor = model.User{}
	m.s.db.requests[id] = stored
	return nil
}

func (m *memRequestStore) Update(_ context.Context, req *model.SupervisorRequest) error {
	defer m.s.lock()()
	if _, ok := m.s.db.requests[req.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *req
	stored.Student = model.User{}
	stored.Supervisor = model.User{}
	m.s.db.requests[req.ID] = stored
	return nil
}

func (m *memRequestStore) fill(r model.SupervisorRequest) model.SupervisorRequest {
	if u := m.s.userCopy(r.StudentID); u != nil {
		r.Student = *u
	}
	if u := m.s.userCopy(r.SupervisorID); u != nil {
		r.Supervisor = *u
	}
	return r
}

func (m *memRequestStore) GetByID(_ context.Context, id uint) (*model.SupervisorRequest, error) {
	defer m.s.lock()()
	r, ok := m.s.db.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r = m.fill(r)
	return &r, nil
}

func (m *memRequestStore) GetPendingByPair(
	_ context.Context, studentID, supervisorID uint,
) (*model.SupervisorRequest, error) {
	defer m.s.lock()()
	for _, r := range m.s.db.requests {
		if r.StudentID == studentID && r.SupervisorID == supervisorID && r.Status == model.RequestPending {
			r = m.fill(r)
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRequestStore) DeleteRejectedByPair(_ context.Context, studentID, supervisorID uint) error {
	defer m.s.lock()()
	for id, r := range m.s.db.requests {
		if r.StudentID == studentID && r.SupervisorID == supervisorID && r.Status == model.RequestRejected {
			delete(m.s.db.requests, id)
		}
	}
	return nil
}

func (m *memRequestStore) ListBySupervisor(_ context.Context, supervisorID uint) ([]model.SupervisorRequest, error) {
	defer m.s.lock()()
	var reqs []model.SupervisorRequest
	for _, r := range m.s.db.requests {
		if r.SupervisorID == supervisorID {
			reqs = append(reqs, m.fill(r))
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}

func (m *memRequestStore) CountPending(_ context.Context) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, r := range m.s.db.requests {
		if r.Status == model.RequestPending {
			count++
		}
	}
	return count, nil
}

func (m *memRequestStore) CountPendingBySupervisor(_ context.Context, supervisorID uint) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, r := range m.s.db.requests {
		if r.SupervisorID == supervisorID && r.Status == model.RequestPending {
			count++
		}
	}
	return count, nil
}

func (m *memRequestStore) RejectOtherPending(_ context.Context, studentID, exceptID uint) error {
	defer m.s.lock()()
	for id, r := range m.s.db.requests {
		if r.StudentID == studentID && r.Status == model.RequestPending && r.ID != exceptID {
			r.Status = model.RequestRejected
			m.s.db.requests[id] = r
		}
	}
	return nil
}

type memNotificationStore struct {
	s *memStores
}

func (m *memNotificationStore) Create(_ context.Context, n *model.Notification) error {
	defer m.s.lock()()
	id, at := m.s.db.stamp()
	n.ID = id
	n.CreatedAt = at
	if n.Type == "" {
		n.Type = model.NotifyGeneral
	}
	if n.Priority == "" {
		n.Priority = model.PriorityLow
	}
	m.s.db.notifications[id] = *n
	return nil
}

func (m *memNotificationStore) ListByUser(_ context.Context, userID uint) ([]model.Notification, error) {
	defer m.s.lock()()
	var ns []model.Notification
	for _, n := range m.s.db.notifications {
		if n.UserID == userID {
			ns = append(ns, n)
		}
	}
	sortNotificationsNewest(ns)
	return ns, nil
}

func (m *memNotificationStore) ListLatestByUser(_ context.Context, userID uint, limit int) ([]model.Notification, error) {
	ns, _ := m.ListByUser(context.Background(), userID)
	if len(ns) > limit {
		ns = ns[:limit]
	}
	return ns, nil
}

func (m *memNotificationStore) ListByTypes(
	_ context.Context, types []model.NotificationType,
) ([]model.Notification, error) {
	defer m.s.lock()()
	var ns []model.Notification
	for _, n := range m.s.db.notifications {
		for _, t := range types {
			if n.Type == t {
				ns = append(ns, n)
				break
			}
		}
	}
	sortNotificationsNewest(ns)
	return ns, nil
}

func (m *memNotificationStore) ListUnreadSince(
	_ context.Context, userID uint, since time.Time,
) ([]model.Notification, error) {
	defer m.s.lock()()
	var ns []model.Notification
	for _, n := range m.s.db.notifications {
		if n.UserID == userID && !n.IsRead && n.CreatedAt.After(since) {
			ns = append(ns, n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.Before(ns[j].CreatedAt) })
	return ns, nil
}

func (m *memNotificationStore) MarkRead(_ context.Context, id, userID uint) (*model.Notification, error) {
	defer m.s.lock()()
	n, ok := m.s.db.notifications[id]
	if !ok || n.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	n.IsRead = true
	m.s.db.notifications[id] = n
	return &n, nil
}

func (m *memNotificationStore) MarkAllRead(_ context.Context, userID uint) error {
	defer m.s.lock()()
	for id, n := range m.s.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.s.db.notifications[id] = n
		}
	}
	return nil
}

func (m *memNotificationStore) Delete(_ context.Context, id, userID uint) error {
	defer m.s.lock()()
	n, ok := m.s.db.notifications[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.db.notifications, id)
	return nil
}

func (m *memNotificationStore) DeleteAll(_ context.Context, userID uint) error {
	defer m.s.lock()()
	for id, n := range m.s.db.notifications {
		if n.UserID == userID {
			delete(m.s.db.notifications, id)
		}
	}
	return nil
}

type memDeadlineStore struct {
	s *memStores
}

func (m *memDeadlineStore) Create(_ context.Context, d *model.Deadline) error {
	defer m.s.lock()()
	id, at := m.s.db.stamp()
	d.ID = id
	d.CreatedAt = at
	stored := *d
	stored.Creator = model.User{}
	stored.Project = model.Project{}
	m.s.db.deadlines[id] = stored
	return nil
}

func (m *memDeadlineStore) Update(_ context.Context, d *model.Deadline) error {
	defer m.s.lock()()
	if _, ok := m.s.db.deadlines[d.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *d
	stored.Creator = model.User{}
	stored.Project = model.Project{}
	m.s.db.deadlines[d.ID] = stored
	return nil
}

func (m *memDeadlineStore) GetByID(_ context.Context, id uint) (*model.Deadline, error) {
	defer m.s.lock()()
	d, ok := m.s.db.deadlines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u := m.s.userCopy(d.CreatedBy); u != nil {
		d.Creator = *u
	}
	if p, ok := m.s.db.projects[d.ProjectID]; ok {
		d.Project = p
	}
	return &d, nil
}

func (m *memDeadlineStore) ListByProject(_ context.Context, projectID uint) ([]model.Deadline, error) {
	defer m.s.lock()()
	var ds []model.Deadline
	for _, d := range m.s.db.deadlines {
		if d.ProjectID == projectID {
			ds = append(ds, d)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].DueDate.Before(ds[j].DueDate) })
	return ds, nil
}

func sortUsersNewest(users []model.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
}

func sortProjectsNewest(projects []model.Project) {
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
}

func sortNotificationsNewest(ns []model.Notification) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
}
