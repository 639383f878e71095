package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CreatePayload - типизированный запрос создания документа T
type CreatePayload[T any] interface {
	ToModel() *T
}

// UpdatePayload - частичное обновление: ApplyTo меняет только переданные поля
type UpdatePayload[T any] interface {
	ApplyTo(entity *T)
	ExpectedVersion() *int
}

// ListQuery - параметры списка из query string
type ListQuery struct {
	Filters map[string]interface{}
	Limit   int
	Offset  int
}

// Date принимает "2006-01-02", "2006-01" и RFC3339.
// Пустая строка дает нулевую дату (используется для очистки поля).
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

func NewDate(t time.Time) Date {
	return Date{Time: t}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// timePtr: nil или нулевая дата -> nil
func timePtr(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// optionalString: пустая строка очищает поле
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cleanTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		result = append(result, tag)
	}
	return result
}

// DeleteResponse - пустой payload успешного удаления
type DeleteResponse struct{}
