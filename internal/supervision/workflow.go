// Package supervision implements the assignment workflow between
// students and teachers: request creation, accept/reject, and direct
// assignment by admins. All paths that establish a supervision go
// through one transactional step so the capacity invariant holds under
// concurrent accepts.
package supervision

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
)

var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrSupervisorNotFound = errors.New("supervisor not found")
	ErrRequestNotFound    = errors.New("request not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrNotRequestOwner    = errors.New("request belongs to another supervisor")
	ErrAlreadyProcessed   = errors.New("request already processed")
	ErrCapacityExceeded   = errors.New("supervisor has reached max capacity")
	ErrDuplicatePending   = errors.New("a pending request for this supervisor already exists")
	ErrAlreadyAssigned    = errors.New("student already has a supervisor")
	ErrProjectNotApproved = errors.New("project is not approved")
)

// Mailer sends the best-effort emails attached to workflow outcomes.
// Failures are logged, never surfaced to the caller.
type Mailer interface {
	RequestAccepted(ctx context.Context, student, supervisor *model.User) error
	RequestRejected(ctx context.Context, student, supervisor *model.User) error
	SupervisorAssigned(ctx context.Context, student, supervisor *model.User) error
}

type Workflow struct {
	stores store.Stores
	mailer Mailer // may be nil

	// serializes accepts/assigns per supervisor id
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewWorkflow(stores store.Stores, mailer Mailer) *Workflow {
	return &Workflow{
		stores: stores,
		mailer: mailer,
		locks:  make(map[uint]*sync.Mutex),
	}
}

func (w *Workflow) supervisorLock(id uint) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[id]
	if !ok {
		l = &sync.Mutex{}
		w.locks[id] = l
	}
	return l
}

// CreateRequest files a pending supervision request from a student to a
// teacher. A rejected request for the same pair is discarded so the
// student can re-apply; a pending one is a conflict.
func (w *Workflow) CreateRequest(
	ctx context.Context, studentID, supervisorID uint, message string,
) (*model.SupervisorRequest, error) {
	student, err := w.stores.Users().GetByIDAndRole(ctx, studentID, model.RoleStudent)
	if err != nil {
		return nil, ErrStudentNotFound
	}
	if student.SupervisorID != nil {
		return nil, ErrAlreadyAssigned
	}
	supervisor, err := w.stores.Users().GetByIDAndRole(ctx, supervisorID, model.RoleTeacher)
	if err != nil {
		return nil, ErrSupervisorNotFound
	}

	req := &model.SupervisorRequest{
		StudentID:    studentID,
		SupervisorID: supervisorID,
		Message:      message,
		Status:       model.RequestPending,
	}
	err = w.stores.Atomic(ctx, func(tx store.Stores) error {
		assigned, err := tx.Users().CountBySupervisor(ctx, supervisorID)
		if err != nil {
			return err
		}
		if assigned >= int64(supervisor.MaxStudents) {
			return ErrCapacityExceeded
		}
		if _, err := tx.Requests().GetPendingByPair(ctx, studentID, supervisorID); err == nil {
			return ErrDuplicatePending
		}
		if err := tx.Requests().DeleteRejectedByPair(ctx, studentID, supervisorID); err != nil {
			return err
		}
		return tx.Requests().Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	w.notify(ctx, supervisor.ID,
		fmt.Sprintf("New supervision request from %s", student.Name),
		model.NotifyRequest, model.PriorityMedium, "/teacher/requests")
	return req, nil
}

// Accept approves a pending request. The capacity check runs inside the
// transaction under a per-supervisor lock, so two accepts racing for the
// last slot cannot both succeed.
func (w *Workflow) Accept(
	ctx context.Context, requestID, actingSupervisorID uint,
) (*model.SupervisorRequest, error) {
	lock := w.supervisorLock(actingSupervisorID)
	lock.Lock()
	defer lock.Unlock()

	var req *model.SupervisorRequest
	var student, supervisor *model.User
	err := w.stores.Atomic(ctx, func(tx store.Stores) error {
		var err error
		req, err = tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return ErrRequestNotFound
		}
		if req.SupervisorID != actingSupervisorID {
			return ErrNotRequestOwner
		}
		if req.Status != model.RequestPending {
			return ErrAlreadyProcessed
		}

		student, err = tx.Users().GetByID(ctx, req.StudentID)
		if err != nil {
			return ErrStudentNotFound
		}
		supervisor, err = tx.Users().GetByIDAndRole(ctx, actingSupervisorID, model.RoleTeacher)
		if err != nil {
			return ErrSupervisorNotFound
		}

		if err := w.establish(ctx, tx, student, supervisor, false); err != nil {
			return err
		}

		req.Status = model.RequestApproved
		if err := tx.Requests().Update(ctx, req); err != nil {
			return err
		}
		return tx.Requests().RejectOtherPending(ctx, student.ID, req.ID)
	})
	if err != nil {
		return nil, err
	}

	w.notify(ctx, student.ID,
		fmt.Sprintf("Your supervision request has been approved by %s", supervisor.Name),
		model.NotifyApproval, model.PriorityLow, "/student/dashboard")
	if w.mailer != nil {
		if err := w.mailer.RequestAccepted(ctx, student, supervisor); err != nil {
			klog.Errorf("send accept mail to %s: %v", student.Email, err)
		}
	}
	return req, nil
}

// Reject declines a pending request. No references change.
func (w *Workflow) Reject(
	ctx context.Context, requestID, actingSupervisorID uint,
) (*model.SupervisorRequest, error) {
	req, err := w.stores.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, ErrRequestNotFound
	}
	if req.SupervisorID != actingSupervisorID {
		return nil, ErrNotRequestOwner
	}
	if req.Status != model.RequestPending {
		return nil, ErrAlreadyProcessed
	}

	req.Status = model.RequestRejected
	if err := w.stores.Requests().Update(ctx, req); err != nil {
		return nil, err
	}

	supervisor := &req.Supervisor
	w.notify(ctx, req.StudentID,
		fmt.Sprintf("Your supervision request has been rejected by %s", supervisor.Name),
		model.NotifyRejection, model.PriorityHigh, "/student/supervisors")
	if w.mailer != nil {
		if err := w.mailer.RequestRejected(ctx, &req.Student, supervisor); err != nil {
			klog.Errorf("send reject mail to %s: %v", req.Student.Email, err)
		}
	}
	return req, nil
}

// AssignDirect binds a supervisor to a student without a request. The
// student's project must exist and be approved.
func (w *Workflow) AssignDirect(ctx context.Context, studentID, supervisorID uint) error {
	lock := w.supervisorLock(supervisorID)
	lock.Lock()
	defer lock.Unlock()

	var student, supervisor *model.User
	err := w.stores.Atomic(ctx, func(tx store.Stores) error {
		var err error
		student, err = tx.Users().GetByIDAndRole(ctx, studentID, model.RoleStudent)
		if err != nil {
			return ErrStudentNotFound
		}
		supervisor, err = tx.Users().GetByIDAndRole(ctx, supervisorID, model.RoleTeacher)
		if err != nil {
			return ErrSupervisorNotFound
		}
		return w.establish(ctx, tx, student, supervisor, true)
	})
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Supervision between %s and %s has been set up", student.Name, supervisor.Name)
	w.notify(ctx, student.ID, msg, model.NotifyApproval, model.PriorityLow, "/student/dashboard")
	w.notify(ctx, supervisor.ID, msg, model.NotifyApproval, model.PriorityLow, "/teacher/students")
	if w.mailer != nil {
		if err := w.mailer.SupervisorAssigned(ctx, student, supervisor); err != nil {
			klog.Errorf("send assign mail to %s: %v", student.Email, err)
		}
	}
	return nil
}

// establish is the single step both paths share: re-check capacity, set
// the student's supervisor, and stamp the supervisor onto the student's
// project. requireApprovedProject distinguishes the admin path, which
// refuses to assign before the proposal is approved.
func (w *Workflow) establish(
	ctx context.Context, tx store.Stores, student, supervisor *model.User, requireApprovedProject bool,
) error {
	if student.SupervisorID != nil {
		return ErrAlreadyAssigned
	}
	assigned, err := tx.Users().CountBySupervisor(ctx, supervisor.ID)
	if err != nil {
		return err
	}
	if assigned >= int64(supervisor.MaxStudents) {
		return ErrCapacityExceeded
	}

	project, err := tx.Projects().GetLatestByStudent(ctx, student.ID)
	if requireApprovedProject {
		if err != nil {
			return ErrProjectNotFound
		}
		if project.Status != model.ProjectApproved {
			return ErrProjectNotApproved
		}
	}
	if err == nil && project.Status != model.ProjectRejected {
		project.SupervisorID = &supervisor.ID
		if err := tx.Projects().Update(ctx, project); err != nil {
			return err
		}
	}

	student.SupervisorID = &supervisor.ID
	return tx.Users().Update(ctx, student)
}

// notify appends a notification after the transaction committed.
// Failures are logged only; the workflow outcome already stands.
func (w *Workflow) notify(
	ctx context.Context, userID uint, message string,
	typ model.NotificationType, priority model.Priority, link string,
) {
	n := &model.Notification{
		UserID:   userID,
		Message:  message,
		Type:     typ,
		Priority: priority,
		Link:     &link,
	}
	if err := w.stores.Notifications().Create(ctx, n); err != nil {
		klog.Errorf("create notification for user %d: %v", userID, err)
	}
}
