package dao

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
)

// Migrate applies schema migrations. The init migration covers the full
// current schema; later changes get their own entries.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250812-init",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.User{},
					&model.Project{},
					&model.ProjectFile{},
					&model.Feedback{},
					&model.SupervisorRequest{},
					&model.Notification{},
					&model.Deadline{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					"deadlines", "notifications", "supervisor_requests",
					"feedbacks", "project_files", "projects", "users",
				)
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}
	klog.Info("migrations applied")
	return nil
}
