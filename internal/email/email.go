package email

import "context"

// Message - письмо для отправки
type Message struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// TemplateData - данные для шаблонов писем
type TemplateData map[string]interface{}

// Provider определяет интерфейс для отправки email
type Provider interface {
	Send(ctx context.Context, msg *Message) error
	// SendTemplate рендерит шаблон и отправляет его как HTML
	SendTemplate(ctx context.Context, to, subject, templateName string, data TemplateData) error
	Validate() error
	Close() error
}

// Renderer определяет интерфейс для рендеринга шаблонов
type Renderer interface {
	Render(templateName string, data TemplateData) (string, error)
}

// Имена встроенных шаблонов
const (
	TemplateVerifyEmail   = "verify_email"
	TemplateResetPassword = "reset_password"
)
