package supervision

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
)

func newStudent(t *testing.T, s store.Stores, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.edu", Role: model.RoleStudent}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func newTeacher(t *testing.T, s store.Stores, name string, capacity int) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.edu", Role: model.RoleTeacher, MaxStudents: capacity}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestCreateRequestDuplicateAndResubmission(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	student := newStudent(t, s, "alice")
	teacher := newTeacher(t, s, "prof", 2)

	_, err := w.CreateRequest(ctx, student.ID, teacher.ID, "please")
	require.NoError(t, err)

	_, err = w.CreateRequest(ctx, student.ID, teacher.ID, "again")
	assert.ErrorIs(t, err, ErrDuplicatePending)

	// after a rejection the student can re-apply to the same teacher
	reqs, err := s.Requests().ListBySupervisor(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	_, err = w.Reject(ctx, reqs[0].ID, teacher.ID)
	require.NoError(t, err)

	_, err = w.CreateRequest(ctx, student.ID, teacher.ID, "second try")
	require.NoError(t, err)

	reqs, err = s.Requests().ListBySupervisor(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.RequestPending, reqs[0].Status)

	// the teacher got a request notification for each attempt
	ns, err := s.Notifications().ListByUser(ctx, teacher.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ns)
	assert.Equal(t, model.NotifyRequest, ns[0].Type)
	assert.Equal(t, model.PriorityMedium, ns[0].Priority)
}

func TestCreateRequestPreconditions(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	student := newStudent(t, s, "bob")
	other := newStudent(t, s, "carol")
	teacher := newTeacher(t, s, "prof", 1)
	full := newTeacher(t, s, "busy", 1)

	// not a teacher
	_, err := w.CreateRequest(ctx, student.ID, other.ID, "hi")
	assert.ErrorIs(t, err, ErrSupervisorNotFound)

	// teacher at capacity
	other.SupervisorID = &full.ID
	require.NoError(t, s.Users().Update(ctx, other))
	_, err = w.CreateRequest(ctx, student.ID, full.ID, "hi")
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// student already supervised
	student.SupervisorID = &teacher.ID
	require.NoError(t, s.Users().Update(ctx, student))
	_, err = w.CreateRequest(ctx, student.ID, teacher.ID, "hi")
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}

func TestAcceptEstablishesSupervision(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	student := newStudent(t, s, "dave")
	teacher := newTeacher(t, s, "prof", 3)

	project := &model.Project{StudentID: student.ID, Title: "FYP", Description: "d", Status: model.ProjectApproved}
	require.NoError(t, s.Projects().Create(ctx, project))

	req, err := w.CreateRequest(ctx, student.ID, teacher.ID, "please")
	require.NoError(t, err)

	got, err := w.Accept(ctx, req.ID, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, got.Status)

	student, err = s.Users().GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, student.SupervisorID)
	assert.Equal(t, teacher.ID, *student.SupervisorID)

	// the approved project now carries the supervisor too
	project, err = s.Projects().GetByID(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, project.SupervisorID)
	assert.Equal(t, teacher.ID, *project.SupervisorID)

	// accepting a second time must not duplicate the assignment
	_, err = w.Accept(ctx, req.ID, teacher.ID)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	count, err := s.Users().CountBySupervisor(ctx, teacher.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// the student got an approval notification
	ns, err := s.Notifications().ListByUser(ctx, student.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ns)
	assert.Equal(t, model.NotifyApproval, ns[0].Type)
}

func TestAcceptSupersedesOtherPendingRequests(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	student := newStudent(t, s, "erin")

	var reqs []*model.SupervisorRequest
	teachers := []*model.User{
		newTeacher(t, s, "prof-a", 2),
		newTeacher(t, s, "prof-b", 2),
		newTeacher(t, s, "prof-c", 2),
	}
	for _, teacher := range teachers {
		req, err := w.CreateRequest(ctx, student.ID, teacher.ID, "hi")
		require.NoError(t, err)
		reqs = append(reqs, req)
	}

	_, err := w.Accept(ctx, reqs[1].ID, teachers[1].ID)
	require.NoError(t, err)

	for i, want := range []model.RequestStatus{model.RequestRejected, model.RequestApproved, model.RequestRejected} {
		got, err := s.Requests().GetByID(ctx, reqs[i].ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "request %d", i)
	}
}

func TestAcceptAuthorization(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	student := newStudent(t, s, "frank")
	teacher := newTeacher(t, s, "prof", 2)
	stranger := newTeacher(t, s, "other", 2)

	req, err := w.CreateRequest(ctx, student.ID, teacher.ID, "hi")
	require.NoError(t, err)

	_, err = w.Accept(ctx, req.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotRequestOwner)
	_, err = w.Accept(ctx, req.ID+100, teacher.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = w.Reject(ctx, req.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotRequestOwner)
}

func TestConcurrentAcceptsHonorCapacity(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	teacher := newTeacher(t, s, "prof", 1)

	var reqs []*model.SupervisorRequest
	for _, name := range []string{"s1", "s2", "s3", "s4"} {
		student := newStudent(t, s, name)
		req, err := w.CreateRequest(ctx, student.ID, teacher.ID, "hi")
		require.NoError(t, err)
		reqs = append(reqs, req)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = w.Accept(ctx, id, teacher.ID)
		}(i, req.ID)
	}
	wg.Wait()

	var ok, capacity int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrCapacityExceeded):
			capacity++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, len(reqs)-1, capacity)

	count, err := s.Users().CountBySupervisor(ctx, teacher.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAssignDirect(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	w := NewWorkflow(s, nil)
	student := newStudent(t, s, "grace")
	teacher := newTeacher(t, s, "prof", 2)

	// no project yet
	err := w.AssignDirect(ctx, student.ID, teacher.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	project := &model.Project{StudentID: student.ID, Title: "FYP", Description: "d", Status: model.ProjectPending}
	require.NoError(t, s.Projects().Create(ctx, project))

	// proposal still pending
	err = w.AssignDirect(ctx, student.ID, teacher.ID)
	assert.ErrorIs(t, err, ErrProjectNotApproved)

	project.Status = model.ProjectApproved
	require.NoError(t, s.Projects().Update(ctx, project))
	require.NoError(t, w.AssignDirect(ctx, student.ID, teacher.ID))

	student, err = s.Users().GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, student.SupervisorID)
	assert.Equal(t, teacher.ID, *student.SupervisorID)

	project, err = s.Projects().GetByID(ctx, project.ID)
	require.NoError(t, err)
	require.NotNil(t, project.SupervisorID)
	assert.Equal(t, teacher.ID, *project.SupervisorID)

	// both parties were notified
	for _, id := range []uint{student.ID, teacher.ID} {
		ns, err := s.Notifications().ListByUser(ctx, id)
		require.NoError(t, err)
		require.NotEmpty(t, ns)
		assert.Equal(t, model.NotifyApproval, ns[0].Type)
	}

	// assigning again conflicts
	err = w.AssignDirect(ctx, student.ID, teacher.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
}
