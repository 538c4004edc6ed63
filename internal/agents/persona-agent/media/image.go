// Package media generates and normalizes the images attached to posts.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	xwebp "golang.org/x/image/webp"
)

// MaxUploadBytes is the largest image the platform accepts.
const MaxUploadBytes = 5 * 1024 * 1024

type Image struct {
	Data []byte
	MIME string
}

// Normalize makes data uploadable: WebP is re-encoded as PNG and oversized
// images as JPEG.
func Normalize(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image")
	}

	switch sniffFormat(data) {
	case "webp":
		img, err := xwebp.Decode(bytes.NewReader(data))
		if err != nil {
			return Image{}, fmt.Errorf("decode webp: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return Image{}, fmt.Errorf("encode png: %w", err)
		}
		return shrink(Image{Data: buf.Bytes(), MIME: "image/png"}, img)
	case "png":
		return shrink(Image{Data: data, MIME: "image/png"}, nil)
	case "jpeg":
		return shrink(Image{Data: data, MIME: "image/jpeg"}, nil)
	case "gif":
		if len(data) > MaxUploadBytes {
			return Image{}, fmt.Errorf("gif too large: %d bytes", len(data))
		}
		return Image{Data: data, MIME: "image/gif"}, nil
	default:
		return Image{}, fmt.Errorf("unsupported image format")
	}
}

func shrink(im Image, decoded image.Image) (Image, error) {
	if len(im.Data) <= MaxUploadBytes {
		return im, nil
	}
	if decoded == nil {
		var err error
		decoded, _, err = image.Decode(bytes.NewReader(im.Data))
		if err != nil {
			return Image{}, fmt.Errorf("decode oversized image: %w", err)
		}
	}
	for _, q := range []int{85, 70, 50} {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: q}); err != nil {
			return Image{}, fmt.Errorf("encode jpeg: %w", err)
		}
		if buf.Len() <= MaxUploadBytes {
			return Image{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
		}
	}
	return Image{}, fmt.Errorf("image too large: %d bytes", len(im.Data))
}

func sniffFormat(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "webp"
	}
	if len(data) >= 8 {
		pngSig := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
		if bytes.Equal(data[:8], pngSig) {
			return "png"
		}
	}
	if len(data) >= 6 {
		if string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a" {
			return "gif"
		}
	}
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpeg"
	}
	return ""
}
