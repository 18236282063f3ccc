package mocks

import (
	"context"
	"sync"

	"github.com/comment-widget-api/internal/email"
	"github.com/comment-widget-api/internal/webhook"
)

// SentMail records one delivery made through MockSender
type SentMail struct {
	To      string
	Subject string
	HTML    string
}

// MockSender is a recording mock of email.Sender. Safe for concurrent use
// because the fanout sends from background goroutines.
type MockSender struct {
	mu        sync.Mutex
	Sent      []SentMail
	SendError error
}

var _ email.Sender = (*MockSender)(nil)

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil {
		return m.SendError
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, HTML: html})
	return nil
}

// SentMails returns a snapshot of recorded deliveries
func (m *MockSender) SentMails() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// PostedHook records one delivery made through MockTransport
type PostedHook struct {
	URL  string
	Body []byte
}

// MockTransport is a recording mock of webhook.Transport
type MockTransport struct {
	mu        sync.Mutex
	Posted    []PostedHook
	PostError error
}

var _ webhook.Transport = (*MockTransport)(nil)

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Post(ctx context.Context, url string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostError != nil {
		return m.PostError
	}
	copied := make([]byte, len(body))
	copy(copied, body)
	m.Posted = append(m.Posted, PostedHook{URL: url, Body: copied})
	return nil
}

// PostedHooks returns a snapshot of recorded deliveries
func (m *MockTransport) PostedHooks() []PostedHook {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PostedHook, len(m.Posted))
	copy(out, m.Posted)
	return out
}
