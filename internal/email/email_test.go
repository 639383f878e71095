package email

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateManager_Defaults(t *testing.T) {
	tm := NewTemplateManager()

	assert.Equal(t, []string{TemplateResetPassword, TemplateVerifyEmail}, tm.TemplateNames())

	html, err := tm.Render(TemplateVerifyEmail, TemplateData{
		"Name":      "Ada",
		"Link":      "https://example.com/verify?token=abc",
		"ExpiresIn": "24 hours",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Hello Ada")
	assert.Contains(t, html, "https://example.com/verify?token=abc")
}

func TestTemplateManager_UnknownTemplate(t *testing.T) {
	_, err := NewTemplateManager().Render("missing", nil)
	assert.Error(t, err)
}

func TestTemplateManager_LoadOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplateVerifyEmail+".html"), []byte("custom {{.Name}}"), 0o644))

	tm := NewTemplateManager()
	require.NoError(t, tm.LoadTemplates(dir))

	html, err := tm.Render(TemplateVerifyEmail, TemplateData{"Name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "custom Bob", html)
}

func TestTemplateManager_MissingDirIsIgnored(t *testing.T) {
	assert.NoError(t, NewTemplateManager().LoadTemplates(filepath.Join(t.TempDir(), "nope")))
}

func TestLogProvider_RecordsTemplatedMail(t *testing.T) {
	sender := NewLogProvider(NewTemplateManager())

	err := sender.SendTemplate(context.Background(), "ada@example.com", "Reset", TemplateResetPassword, TemplateData{"Name": "Ada", "Link": "x", "ExpiresIn": "1 hour"})
	require.NoError(t, err)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].HTMLBody, "password reset")
}

func TestNewSMTPProvider_ValidatesConfig(t *testing.T) {
	_, err := NewSMTPProvider(SMTPConfig{Port: 587, FromEmail: "a@b.c"}, nil)
	assert.Error(t, err)

	_, err = NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 0, FromEmail: "a@b.c"}, nil)
	assert.Error(t, err)

	s, err := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Port: 465, FromEmail: "a@b.c", UseTLS: true}, nil)
	require.NoError(t, err)
	assert.True(t, s.dialer.SSL)
}
