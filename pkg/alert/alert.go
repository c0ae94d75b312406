package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fyp-lab/mentor/dao/model"
)

type alertMgr struct {
	handler alertHandlerInterface
}

var (
	once    sync.Once
	alerter *alertMgr
)

func GetAlertMgr() AlertInterface {
	once.Do(func() {
		alerter = &alertMgr{
			handler: newSMTPAlerter(),
		}
	})
	return alerter
}

const (
	acceptedTemplate = `<p>Dear %s,</p>
<p>Good news! <b>%s</b> has accepted your supervision request.
You can now discuss your project plan together.</p>
<p>Log in to the platform to see the details.</p>`

	rejectedTemplate = `<p>Dear %s,</p>
<p>Unfortunately <b>%s</b> has declined your supervision request.
Don't be discouraged, you can send a request to another supervisor.</p>`

	assignedTemplate = `<p>Dear %s,</p>
<p><b>%s</b> has been assigned as your project supervisor by the
administration. Log in to the platform to get in touch.</p>`

	deadlineTemplate = `<p>Dear %s,</p>
<p>This is a reminder that your project <b>%s</b> is due on %s.</p>
<p>Make sure all deliverables are uploaded before the deadline.</p>`

	resetTemplate = `<p>You requested a password reset.</p>
<p><a href="%s">Click here to choose a new password.</a>
The link expires in 15 minutes.</p>
<p>If you did not request this, you can ignore this email.</p>`
)

func (a *alertMgr) RequestAccepted(ctx context.Context, student, supervisor *model.User) error {
	body := fmt.Sprintf(acceptedTemplate, student.Name, supervisor.Name)
	return a.handler.SendMessageTo(ctx, student, "Supervision request accepted", body)
}

func (a *alertMgr) RequestRejected(ctx context.Context, student, supervisor *model.User) error {
	body := fmt.Sprintf(rejectedTemplate, student.Name, supervisor.Name)
	return a.handler.SendMessageTo(ctx, student, "Supervision request declined", body)
}

func (a *alertMgr) SupervisorAssigned(ctx context.Context, student, supervisor *model.User) error {
	body := fmt.Sprintf(assignedTemplate, student.Name, supervisor.Name)
	return a.handler.SendMessageTo(ctx, student, "A supervisor has been assigned to you", body)
}

func (a *alertMgr) DeadlineReminder(
	ctx context.Context, student *model.User, project *model.Project, due time.Time,
) error {
	body := fmt.Sprintf(deadlineTemplate, student.Name, project.Title, due.Format("2006-01-02 15:04"))
	return a.handler.SendMessageTo(ctx, student, "Project deadline approaching", body)
}

func (a *alertMgr) PasswordReset(ctx context.Context, user *model.User, resetURL string) error {
	body := fmt.Sprintf(resetTemplate, resetURL)
	return a.handler.SendMessageTo(ctx, user, "Password reset", body)
}
