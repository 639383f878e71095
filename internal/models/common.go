package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel - общие поля всех документов.
// ID назначается приложением и не меняется после создания.
type BaseModel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `gorm:"not null;default:1" json:"version"`
}

// BeforeCreate назначает UUID и начальную версию
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

func (b *BaseModel) GetID() string {
	return b.ID
}

func (b *BaseModel) GetVersion() int {
	return b.Version
}

func (b *BaseModel) SetVersion(v int) {
	b.Version = v
}

// Base дает доступ к общим полям из обобщенного кода
func (b *BaseModel) Base() *BaseModel {
	return b
}

// Versioned реализуют все модели с BaseModel
type Versioned interface {
	GetID() string
	GetVersion() int
	SetVersion(v int)
	Base() *BaseModel
	BeforeCreate(tx *gorm.DB) error
}
