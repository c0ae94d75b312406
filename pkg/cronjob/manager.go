// Package cronjob schedules the periodic deadline scan that reminds
// students of upcoming project deadlines.
package cronjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/dao/store"
	"github.com/fyp-lab/mentor/pkg/alert"
)

type CronJobManager struct {
	stores     store.Stores
	alerter    alert.AlertInterface // may be nil
	spec       string
	windowDays int
	cron       *cron.Cron
	cronMutex  sync.Mutex
}

// NewCronJobManager builds the reminder scheduler. spec defaults to
// every day at 08:00, windowDays to 3.
func NewCronJobManager(stores store.Stores, alerter alert.AlertInterface, spec string, windowDays int) *CronJobManager {
	if spec == "" {
		spec = "0 8 * * *"
	}
	if windowDays <= 0 {
		windowDays = 3
	}
	return &CronJobManager{
		stores:     stores,
		alerter:    alerter,
		spec:       spec,
		windowDays: windowDays,
		cron:       cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers the reminder job and starts the scheduler.
func (cm *CronJobManager) Start() error {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()

	_, err := cm.cron.AddFunc(cm.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := cm.RunDeadlineReminder(ctx, time.Now()); err != nil {
			klog.Errorf("deadline reminder run: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add deadline reminder job: %w", err)
	}

	cm.cron.Start()
	klog.Infof("deadline reminder scheduled with spec %q", cm.spec)
	return nil
}

func (cm *CronJobManager) Stop() {
	cm.cronMutex.Lock()
	defer cm.cronMutex.Unlock()
	cm.cron.Stop()
}

// RunDeadlineReminder scans active projects whose deadline falls inside
// the reminder window and notifies their students. Deadlines within 24h
// get a high-priority notification, the rest medium.
func (cm *CronJobManager) RunDeadlineReminder(ctx context.Context, now time.Time) error {
	projects, err := cm.stores.Projects().ListDueBetween(ctx, now, now.AddDate(0, 0, cm.windowDays))
	if err != nil {
		return fmt.Errorf("list due projects: %w", err)
	}

	for i := range projects {
		project := &projects[i]
		due := *project.Deadline
		priority := model.PriorityMedium
		if due.Sub(now) <= 24*time.Hour {
			priority = model.PriorityHigh
		}

		link := "/student/project"
		n := &model.Notification{
			UserID:   project.StudentID,
			Message:  fmt.Sprintf("Project %q is due on %s", project.Title, due.Format("2006-01-02")),
			Type:     model.NotifyDeadline,
			Priority: priority,
			Link:     &link,
		}
		if err := cm.stores.Notifications().Create(ctx, n); err != nil {
			klog.Errorf("deadline notification for user %d: %v", project.StudentID, err)
			continue
		}
		if cm.alerter != nil {
			if err := cm.alerter.DeadlineReminder(ctx, &project.Student, project, due); err != nil {
				klog.Errorf("deadline mail to %s: %v", project.Student.Email, err)
			}
		}
	}
	return nil
}
