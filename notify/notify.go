// Package notify renders and sends the portal's transactional emails.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/utils"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names, also used as the metrics label.
const (
	TemplateActivation            = "activation"
	TemplatePasswordReset         = "password_reset"
	TemplatePasswordChanged       = "password_changed"
	TemplateComplaintConfirmation = "complaint_confirmation"
	TemplateStatusUpdate          = "status_update"
)

var subjects = map[string]string{
	TemplateActivation:            "Activate Your Account - Maternity Matters",
	TemplatePasswordReset:         "Password Reset Request - Maternity Matters",
	TemplatePasswordChanged:       "Your Password Was Changed - Maternity Matters",
	TemplateComplaintConfirmation: "We Received Your Complaint - Maternity Matters",
	TemplateStatusUpdate:          "Complaint Status Update - Maternity Matters",
}

// Sender delivers one email. utils.SendGridSender implements it.
type Sender interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, textContent, htmlContent string) error
}

// Message is a rendered email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Notifier renders templates and hands them to a Sender.
type Notifier struct {
	sender    Sender
	clientURL string
	text      *texttemplate.Template
	html      *htmltemplate.Template
	now       func() time.Time
}

// New parses the embedded templates. clientURL is the frontend base used in links.
func New(sender Sender, clientURL string) (*Notifier, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Notifier{
		sender:    sender,
		clientURL: strings.TrimRight(clientURL, "/"),
		text:      text,
		html:      html,
		now:       time.Now,
	}, nil
}

// ActivationLink is the frontend URL that consumes an activation token.
func (n *Notifier) ActivationLink(token string) string {
	return n.clientURL + "/activate-account?token=" + token
}

// ResetLink is the frontend URL that consumes a password reset token.
func (n *Notifier) ResetLink(token string) string {
	return n.clientURL + "/reset-password?token=" + token
}

func (n *Notifier) SendActivation(ctx context.Context, email, token string) error {
	return n.send(ctx, TemplateActivation, "", email, map[string]any{
		"Link": n.ActivationLink(token),
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, email, token string) error {
	return n.send(ctx, TemplatePasswordReset, "", email, map[string]any{
		"Link": n.ResetLink(token),
	})
}

func (n *Notifier) SendPasswordChanged(ctx context.Context, email string) error {
	return n.send(ctx, TemplatePasswordChanged, "", email, map[string]any{
		"Email": email,
		"When":  n.now().UTC().Format("02 Jan 2006 15:04 MST"),
		"Link":  n.clientURL + "/forgot-password",
	})
}

func (n *Notifier) SendComplaintConfirmation(ctx context.Context, complaint *models.Complaint) error {
	return n.send(ctx, TemplateComplaintConfirmation, complaint.ComplainantName, complaint.ComplainantEmail, map[string]any{
		"Complaint": complaint,
		"Issues":    issueLabels(complaint.IssuesFaced),
		"When":      complaint.SubmittedAt.UTC().Format("02 Jan 2006"),
		"Link":      n.clientURL + "/dashboard",
	})
}

func (n *Notifier) SendStatusUpdate(ctx context.Context, complaint *models.Complaint, change models.StatusChange) error {
	return n.send(ctx, TemplateStatusUpdate, complaint.ComplainantName, complaint.ComplainantEmail, map[string]any{
		"Complaint": complaint,
		"From":      StatusLabel(change.From),
		"To":        StatusLabel(change.To),
		"Note":      change.Note,
		"Link":      n.clientURL + "/dashboard",
	})
}

// Render executes the text and HTML variants of a template.
func (n *Notifier) Render(name string, data any) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}
	var text, html bytes.Buffer
	if err := n.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := n.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func (n *Notifier) send(ctx context.Context, name, toName, toEmail string, data any) error {
	msg, err := n.Render(name, data)
	if err != nil {
		return err
	}
	if err := n.sender.SendEmail(ctx, toName, toEmail, msg.Subject, msg.Text, msg.HTML); err != nil {
		utils.NotificationFailures.WithLabelValues(name).Inc()
		log.Error().Err(err).Str("template", name).Str("to", toEmail).Msg("Failed to send email")
		return fmt.Errorf("send %s email: %w", name, err)
	}
	utils.NotificationsSent.WithLabelValues(name).Inc()
	return nil
}

// StatusLabel turns a status value into display text, e.g. "legal notice sent".
func StatusLabel(s models.ComplaintStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func issueLabels(issues []string) []string {
	labels := make([]string, 0, len(issues))
	for _, issue := range issues {
		if label, ok := models.IssueLabels[issue]; ok {
			labels = append(labels, label)
			continue
		}
		labels = append(labels, issue)
	}
	return labels
}
