package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPConfig содержит конфигурацию SMTP сервера
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
	Timeout   time.Duration
}

// SMTPProvider отправляет письма через gomail
type SMTPProvider struct {
	config   SMTPConfig
	dialer   *gomail.Dialer
	renderer Renderer
}

func NewSMTPProvider(config SMTPConfig, renderer Renderer) (*SMTPProvider, error) {
	p := &SMTPProvider{config: config, renderer: renderer}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	dialer.SSL = config.UseTLS && config.Port == 465
	dialer.TLSConfig = &tls.Config{ServerName: config.Host, MinVersion: tls.VersionTLS12}

	p.dialer = dialer
	return p, nil
}

// Validate проверяет конфигурацию SMTP
func (p *SMTPProvider) Validate() error {
	if p.config.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if p.config.Port <= 0 || p.config.Port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", p.config.Port)
	}
	if p.config.FromEmail == "" {
		return fmt.Errorf("sender address is required")
	}
	return nil
}

// Close - gomail открывает соединение на каждое письмо, держать нечего
func (p *SMTPProvider) Close() error {
	return nil
}

func (p *SMTPProvider) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.config.FromEmail, p.config.FromName)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.HTMLBody != "" && msg.Body != "":
		m.SetBody("text/plain", msg.Body)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.Body)
	}

	// gomail не принимает context, поэтому ждем результат отдельно
	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	timeout := p.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("failed to send email: timeout after %s", timeout)
	}
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to, subject, templateName string, data TemplateData) error {
	return sendTemplate(ctx, p, p.renderer, to, subject, templateName, data)
}

func sendTemplate(ctx context.Context, sender Provider, renderer Renderer, to, subject, templateName string, data TemplateData) error {
	if renderer == nil {
		return fmt.Errorf("template renderer is not configured")
	}
	html, err := renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return sender.Send(ctx, &Message{To: []string{to}, Subject: subject, HTMLBody: html})
}
