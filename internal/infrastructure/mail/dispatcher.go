// Package mail отправляет уведомления по почте. Доставка не гарантируется:
// Notify никогда не возвращает ошибку, только Result.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

type Result struct {
	Success bool
	Message string
}

type Dispatcher interface {
	Notify(ctx context.Context, to string, kind Kind, data Data) Result
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// SMTPDispatcher рендерит шаблон и отправляет письмо через go-mail.
type SMTPDispatcher struct {
	cfg SMTPConfig
	log logrus.FieldLogger
}

func NewSMTPDispatcher(cfg SMTPConfig, log logrus.FieldLogger) *SMTPDispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SMTPDispatcher{cfg: cfg, log: log}
}

func (d *SMTPDispatcher) Notify(ctx context.Context, to string, kind Kind, data Data) Result {
	to = strings.TrimSpace(to)
	if to == "" {
		return Result{Success: false, Message: "recipient is empty"}
	}

	subject, body, err := Render(kind, data)
	if err != nil {
		return d.fail(to, kind, err)
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(d.cfg.FromName, d.cfg.FromEmail); err != nil {
		return d.fail(to, kind, fmt.Errorf("smtp from: %w", err))
	}
	if err := msg.To(to); err != nil {
		return d.fail(to, kind, fmt.Errorf("smtp to: %w", err))
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	opts := []gomail.Option{
		gomail.WithPort(d.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(d.cfg.Timeout),
	}
	if d.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(d.cfg.Username),
			gomail.WithPassword(d.cfg.Password),
		)
	}

	client, err := gomail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return d.fail(to, kind, fmt.Errorf("smtp client: %w", err))
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return d.fail(to, kind, fmt.Errorf("smtp send: %w", err))
	}

	return Result{Success: true, Message: "sent"}
}

func (d *SMTPDispatcher) fail(to string, kind Kind, err error) Result {
	d.log.WithFields(logrus.Fields{
		"to":    to,
		"kind":  kind,
		"error": err,
	}).Warn("email not sent")
	return Result{Success: false, Message: err.Error()}
}

// LogDispatcher пишет письма в лог вместо отправки (SMTP не настроен).
type LogDispatcher struct {
	log logrus.FieldLogger
}

func NewLogDispatcher(log logrus.FieldLogger) *LogDispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Notify(_ context.Context, to string, kind Kind, data Data) Result {
	subject, _, err := Render(kind, data)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	d.log.WithFields(logrus.Fields{
		"to":      to,
		"kind":    kind,
		"subject": subject,
		"link":    data.Link,
	}).Info("email (not sent, SMTP disabled)")
	return Result{Success: true, Message: "logged"}
}
