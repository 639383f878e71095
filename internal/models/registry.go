package models

// All возвращает модели для AutoMigrate в порядке зависимостей
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Skill{},
		&Experience{},
		&Education{},
		&Certification{},
		&Project{},
		&Upload{},
	}
}
