package alert

import (
	"context"

	"gopkg.in/gomail.v2"
	"k8s.io/klog/v2"

	"github.com/fyp-lab/mentor/dao/model"
	"github.com/fyp-lab/mentor/pkg/config"
)

type smtpAlerter struct {
	dialer *gomail.Dialer
	sender string
}

func newSMTPAlerter() alertHandlerInterface {
	smtpConfig := config.GetConfig().SMTP
	return &smtpAlerter{
		dialer: gomail.NewDialer(smtpConfig.Host, smtpConfig.Port, smtpConfig.User, smtpConfig.Password),
		sender: smtpConfig.Sender,
	}
}

func (sa *smtpAlerter) SendMessageTo(_ context.Context, receiver *model.User, subject, body string) error {
	if receiver.Email == "" {
		klog.Warningf("%s does not have an email address", receiver.Name)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", sa.sender)
	m.SetHeader("To", receiver.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := sa.dialer.DialAndSend(m); err != nil {
		klog.Errorf("Failed to send email to %s: %v", receiver.Email, err)
		return err
	}
	klog.Infof("Sent email to %s", receiver.Email)
	return nil
}
