package email

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// TemplateManager реализует Renderer. Встроенные шаблоны можно переопределить
// файлами *.html из директории шаблонов.
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	for name, body := range defaultTemplates {
		// встроенные шаблоны статичны и всегда парсятся
		_ = tm.AddTemplate(name, body)
	}
	return tm
}

var defaultTemplates = map[string]string{
	TemplateVerifyEmail: `<p>Hello {{.Name}},</p>
<p>Please confirm your email address by following this link:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.ExpiresIn}}.</p>`,
	TemplateResetPassword: `<p>Hello {{.Name}},</p>
<p>A password reset was requested for your account. Follow this link to choose a new password:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not request it, ignore this email.</p>`,
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}

// LoadTemplates загружает шаблоны из директории. Отсутствующая директория не ошибка.
func (tm *TemplateManager) LoadTemplates(dirPath string) error {
	if dirPath == "" {
		return nil
	}
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", path, err)
		}

		templateName := strings.TrimSuffix(filepath.Base(path), ".html")
		if err := tm.AddTemplate(templateName, string(content)); err != nil {
			return fmt.Errorf("failed to add template %s: %w", templateName, err)
		}

		return nil
	})
}

// TemplateNames возвращает список имен загруженных шаблонов
func (tm *TemplateManager) TemplateNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	names := make([]string, 0, len(tm.templates))
	for name := range tm.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
