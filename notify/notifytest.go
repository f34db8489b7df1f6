package notify

import (
	"context"
	"errors"
	"sync"
)

// SentEmail is one email captured by RecordingSender.
type SentEmail struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// RecordingSender is a Sender that keeps every email in memory. Setting Err
// makes every send fail with it after recording the attempt.
type RecordingSender struct {
	mu   sync.Mutex
	sent []SentEmail
	Err  error
}

func (s *RecordingSender) SendEmail(_ context.Context, toName, toEmail, subject, textContent, htmlContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentEmail{
		ToName:  toName,
		ToEmail: toEmail,
		Subject: subject,
		Text:    textContent,
		HTML:    htmlContent,
	})
	return s.Err
}

// Sent returns a copy of the recorded emails.
func (s *RecordingSender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentEmail(nil), s.sent...)
}

// SetErr changes the error returned by subsequent sends.
func (s *RecordingSender) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// ErrMailDown is a convenience failure for tests.
var ErrMailDown = errors.New("mail provider unavailable")
