package imageprocessor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSize - целевой размер (вписывается с сохранением пропорций)
type ImageSize struct {
	Name   string
	Width  int
	Height int
}

var SizeThumbnail = ImageSize{Name: "thumbnail", Width: 400, Height: 400}

// Result - закодированное изображение
type Result struct {
	Data        []byte
	ContentType string
	Extension   string
	Width       int
	Height      int
}

type Processor struct {
	quality int // качество JPEG (1-100)
}

func NewProcessor(quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{quality: quality}
}

// Thumbnail уменьшает изображение до size. Маленькие изображения не увеличиваются.
// PNG остается PNG (прозрачность), JPEG и WebP кодируются в JPEG:
// в x/image есть только декодер WebP.
func (p *Processor) Thumbnail(reader io.Reader, size ImageSize) (*Result, error) {
	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := p.resize(img, size.Width, size.Height)
	bounds := resized.Bounds()

	var buf bytes.Buffer
	result := &Result{Width: bounds.Dx(), Height: bounds.Dy()}
	switch format {
	case "png":
		if err := png.Encode(&buf, resized); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
		result.ContentType, result.Extension = "image/png", ".png"
	case "jpeg", "webp":
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		result.ContentType, result.Extension = "image/jpeg", ".jpg"
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	result.Data = buf.Bytes()
	return result, nil
}

func (p *Processor) resize(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		return img
	}

	ratio := float64(width) / float64(height)
	newWidth := maxWidth
	newHeight := maxHeight
	if float64(maxWidth)/float64(maxHeight) > ratio {
		newWidth = int(float64(maxHeight) * ratio)
	} else {
		newHeight = int(float64(maxWidth) / ratio)
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// Dimensions читает только заголовок изображения
func Dimensions(reader io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
