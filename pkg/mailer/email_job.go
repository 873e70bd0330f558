package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mailtpl "github.com/oksasatya/user-management-api/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "profile_updated", "account_created"
	Data     map[string]any `json:"data,omitempty"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// EnsureRecipient fills Email/RecipientEmail from To when the template data lacks them.
func (j *EmailJob) EnsureRecipient() {
	if j.Data == nil {
		j.Data = map[string]any{}
	}
	for _, k := range []string{"Email", "RecipientEmail"} {
		if v, ok := j.Data[k].(string); !ok || strings.TrimSpace(v) == "" {
			j.Data[k] = j.To
		}
	}
}

// Render resolves the final subject, text and html of the job.
// Jobs without a template are sent as given.
func (j *EmailJob) Render() (subject, text, html string, err error) {
	if j.Template == "" {
		return j.Subject, j.Text, j.HTML, nil
	}
	j.EnsureRecipient()
	subject, text, html, err = mailtpl.Render(j.Template, j.Data)
	if err != nil {
		return "", "", "", err
	}
	if j.Subject != "" {
		subject = j.Subject
	}
	return subject, text, html, nil
}

// ErrRender marks jobs that can never be sent; retrying them is pointless.
var ErrRender = errors.New("render email")

// Deliver renders the job and hands it to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	subject, text, html, err := job.Render()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	return s.Send(ctx, job.To, subject, text, html)
}
