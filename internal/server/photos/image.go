// Package photos normalises uploaded profile photos and keeps them in object storage.
package photos

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Size is the edge length of every stored photo. Uploads are stretched to
// fit, the aspect ratio is not preserved.
const Size = 200

const jpegQuality = 90

// MaxPixels bounds the decoded size of an upload. Headers are checked before
// any pixel data is allocated.
const MaxPixels = 25_000_000

var (
	// ErrNotImage is returned when the uploaded bytes are not a decodable image.
	ErrNotImage = errors.New("not an image")
	// ErrTooLarge is returned when the image header declares more than MaxPixels.
	ErrTooLarge = errors.New("image too large")
)

func checkConfig(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrNotImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

// Resize decodes data, scales it to Size x Size and re-encodes it as JPEG.
func Resize(data []byte) ([]byte, error) {
	if err := checkConfig(data); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
