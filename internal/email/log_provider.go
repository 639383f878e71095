package email

import (
	"context"
	"strings"
	"sync"

	"portfolio_backend/internal/logger"
)

// LogProvider пишет письма в лог вместо отправки. Используется когда SMTP
// выключен в конфиге, и в тестах (Sent возвращает отправленные письма).
type LogProvider struct {
	renderer Renderer

	mu   sync.Mutex
	sent []Message
}

func NewLogProvider(renderer Renderer) *LogProvider {
	return &LogProvider{renderer: renderer}
}

func (s *LogProvider) Send(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()

	logger.CtxInfo(ctx, "email suppressed (smtp disabled)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
	)
	return nil
}

func (s *LogProvider) SendTemplate(ctx context.Context, to, subject, templateName string, data TemplateData) error {
	return sendTemplate(ctx, s, s.renderer, to, subject, templateName, data)
}

func (s *LogProvider) Validate() error { return nil }

func (s *LogProvider) Close() error { return nil }

func (s *LogProvider) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
