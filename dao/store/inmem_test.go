package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fyp-lab/mentor/dao/model"
)

func seedUser(t *testing.T, s Stores, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.edu", Role: role}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestNotificationOwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := NewInMemStores()
	alice := seedUser(t, s, "alice", model.RoleStudent)
	bob := seedUser(t, s, "bob", model.RoleStudent)

	n := &model.Notification{UserID: alice.ID, Message: "hello", Type: model.NotifyGeneral}
	require.NoError(t, s.Notifications().Create(ctx, n))

	// bob cannot read or delete alice's notification
	_, err := s.Notifications().MarkRead(ctx, n.ID, bob.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, s.Notifications().Delete(ctx, n.ID, bob.ID), gorm.ErrRecordNotFound)

	got, err := s.Notifications().MarkRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	require.NoError(t, s.Notifications().Delete(ctx, n.ID, alice.ID))
	ns, err := s.Notifications().ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestRejectOtherPendingKeepsAccepted(t *testing.T) {
	ctx := context.Background()
	s := NewInMemStores()
	student := seedUser(t, s, "carol", model.RoleStudent)
	t1 := seedUser(t, s, "prof-a", model.RoleTeacher)
	t2 := seedUser(t, s, "prof-b", model.RoleTeacher)
	t3 := seedUser(t, s, "prof-c", model.RoleTeacher)

	var reqs []*model.SupervisorRequest
	for _, sup := range []uint{t1.ID, t2.ID, t3.ID} {
		r := &model.SupervisorRequest{StudentID: student.ID, SupervisorID: sup}
		require.NoError(t, s.Requests().Create(ctx, r))
		reqs = append(reqs, r)
	}

	accepted := reqs[1]
	accepted.Status = model.RequestApproved
	require.NoError(t, s.Requests().Update(ctx, accepted))
	require.NoError(t, s.Requests().RejectOtherPending(ctx, student.ID, accepted.ID))

	for i, want := range []model.RequestStatus{model.RequestRejected, model.RequestApproved, model.RequestRejected} {
		got, err := s.Requests().GetByID(ctx, reqs[i].ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	pending, err := s.Requests().CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestResetTokenLookupHonorsExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewInMemStores()
	u := seedUser(t, s, "dave", model.RoleStudent)

	hash := "deadbeef"
	expire := time.Now().Add(15 * time.Minute)
	u.ResetPasswordToken = &hash
	u.ResetPasswordExpire = &expire
	require.NoError(t, s.Users().Update(ctx, u))

	got, err := s.Users().GetByResetToken(ctx, hash, time.Now())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Users().GetByResetToken(ctx, hash, expire.Add(time.Second))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = s.Users().GetByResetToken(ctx, "other", time.Now())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListDueBetweenSkipsFinishedProjects(t *testing.T) {
	ctx := context.Background()
	s := NewInMemStores()
	student := seedUser(t, s, "erin", model.RoleStudent)

	due := time.Now().Add(24 * time.Hour)
	mk := func(status model.ProjectStatus, deadline *time.Time) *model.Project {
		p := &model.Project{StudentID: student.ID, Title: "t", Description: "d", Status: status, Deadline: deadline}
		require.NoError(t, s.Projects().Create(ctx, p))
		return p
	}
	active := mk(model.ProjectApproved, &due)
	mk(model.ProjectCompleted, &due)
	mk(model.ProjectRejected, &due)
	mk(model.ProjectApproved, nil)

	got, err := s.Projects().ListDueBetween(ctx, time.Now(), time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
	assert.Equal(t, student.ID, got[0].Student.ID)
}
