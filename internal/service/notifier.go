package service

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
	"github.com/openedu-labs/geoc-api/pkg/mailer"
)

type managerDirectory interface {
	ListManagerEmails(ctx context.Context) ([]string, error)
}

// Notifier sends workflow email. Delivery failures are logged and swallowed;
// no state change ever depends on mail going out.
type Notifier struct {
	sender  mailer.Sender
	users   managerDirectory
	bcc     []string
	metrics *Metrics
	logger  *zap.Logger
}

// NewNotifier creates a new instance of Notifier. Metrics may be nil.
func NewNotifier(sender mailer.Sender, users managerDirectory, bcc []string, metrics *Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, users: users, bcc: bcc, metrics: metrics, logger: logger}
}

// CourseSubmitted tells the committee a course is ready for review.
func (n *Notifier) CourseSubmitted(ctx context.Context, course *models.Course, submitterName string) {
	recipients, err := n.users.ListManagerEmails(ctx)
	if err != nil {
		n.logger.Warn("manager lookup for submit mail failed", zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		n.logger.Warn("no reviewers to notify", zap.String("course_id", course.ID))
		return
	}
	subject := fmt.Sprintf("Course submitted for review: %s", course.Number)
	body := fmt.Sprintf(
		"<p>%s has submitted <strong>%s &mdash; %s</strong> for outcome review.</p><p>The course is now locked for editing until the committee responds.</p>",
		html.EscapeString(submitterName), html.EscapeString(course.Number), html.EscapeString(course.Title))
	n.deliver(ctx, mailer.Message{To: recipients, BCC: n.bcc, Subject: subject, HTML: body})
}

// CourseDecision tells the owner about an approval or revision request.
func (n *Notifier) CourseDecision(ctx context.Context, course *models.Course, ownerEmail string, status models.CourseStatus, feedback string) {
	var subject, body string
	switch status {
	case models.CourseStatusApproved:
		subject = fmt.Sprintf("Course approved: %s", course.Number)
		body = fmt.Sprintf(
			"<p><strong>%s &mdash; %s</strong> has been approved by the committee.</p>",
			html.EscapeString(course.Number), html.EscapeString(course.Title))
	case models.CourseStatusNeedsWork:
		subject = fmt.Sprintf("Course needs revision: %s", course.Number)
		body = fmt.Sprintf(
			"<p><strong>%s &mdash; %s</strong> was returned for revision.</p>",
			html.EscapeString(course.Number), html.EscapeString(course.Title))
		if feedback != "" {
			body += fmt.Sprintf("<p>Committee feedback:</p><blockquote>%s</blockquote>", html.EscapeString(feedback))
		}
	default:
		return
	}
	n.deliver(ctx, mailer.Message{To: []string{ownerEmail}, BCC: n.bcc, Subject: subject, HTML: body})
}

func (n *Notifier) deliver(ctx context.Context, msg mailer.Message) {
	if n.metrics != nil {
		n.metrics.MailSent.Inc()
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Warn("mail delivery failed", zap.String("subject", msg.Subject), zap.Error(err))
	}
}
