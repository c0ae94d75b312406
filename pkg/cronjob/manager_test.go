package cronjob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
)

func TestRunDeadlineReminder(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemStores()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	student := &model.User{Name: "alice", Email: "alice@example.edu", Role: model.RoleStudent}
	require.NoError(t, s.Users().Create(ctx, student))

	mk := func(title string, due time.Time, status model.ProjectStatus) {
		p := &model.Project{StudentID: student.ID, Title: title, Description: "d", Status: status, Deadline: &due}
		require.NoError(t, s.Projects().Create(ctx, p))
	}
	mk("urgent", now.Add(6*time.Hour), model.ProjectApproved)
	mk("soon", now.Add(48*time.Hour), model.ProjectApproved)
	mk("far", now.AddDate(0, 0, 10), model.ProjectApproved)
	mk("done", now.Add(6*time.Hour), model.ProjectCompleted)

	cm := NewCronJobManager(s, nil, "", 3)
	require.NoError(t, cm.RunDeadlineReminder(ctx, now))

	ns, err := s.Notifications().ListByUser(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, ns, 2)

	byPriority := map[model.Priority]int{}
	for _, n := range ns {
		assert.Equal(t, model.NotifyDeadline, n.Type)
		byPriority[n.Priority]++
	}
	assert.Equal(t, 1, byPriority[model.PriorityHigh])
	assert.Equal(t, 1, byPriority[model.PriorityMedium])
}
