package config

// UploadKind - категория загружаемого файла
type UploadKind string

const (
	UploadKindImage UploadKind = "image"
	UploadKindCV    UploadKind = "cv"
)

// FilePolicy описывает ограничения для одной категории файлов
type FilePolicy struct {
	MaxSize      int64
	AllowedTypes []string
	Directory    string // Подкаталог в хранилище
}

// FilePolicies строит политики загрузки из секции upload
func (c *Config) FilePolicies() map[UploadKind]FilePolicy {
	return map[UploadKind]FilePolicy{
		UploadKindImage: {
			MaxSize:      c.Upload.MaxSize,
			AllowedTypes: c.Upload.ImageTypes,
			Directory:    "images",
		},
		UploadKindCV: {
			MaxSize:      c.Upload.MaxSize,
			AllowedTypes: c.Upload.DocumentTypes,
			Directory:    "cvs",
		},
	}
}

// Allows проверяет MIME тип по списку политики
func (p FilePolicy) Allows(mimeType string) bool {
	for _, t := range p.AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}
