// Package storage keeps uploaded question images on local disk as WebP.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	MaxImageWidth  = 1024
	MaxImageHeight = 1024
	MaxUploadBytes = 5 << 20
	webpQuality    = 80
)

var (
	ErrEmptyImage       = errors.New("empty image")
	ErrImageTooLarge    = errors.New("image exceeds upload limit")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// ImageStore persists images and returns their public URL
type ImageStore interface {
	SaveImage(ctx context.Context, folder string, r io.Reader) (string, error)
}

// LocalImageStore writes under dir and builds URLs from baseURL
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, baseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// SaveImage decodes the upload, fits it within the size limits and stores it as WebP
func (s *LocalImageStore) SaveImage(ctx context.Context, folder string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if len(data) > MaxUploadBytes {
		return "", ErrImageTooLarge
	}

	encoded, err := ConvertToWebP(data)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	folder = sanitizeFolder(folder)
	name := fmt.Sprintf("%s-%s.webp", time.Now().UTC().Format("20060102"), uuid.New().String())
	target := filepath.Join(s.dir, folder, name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	if err := os.WriteFile(target, encoded, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return s.baseURL + "/" + path.Join(folder, name), nil
}

// ConvertToWebP decodes jpeg/png/gif/webp and re-encodes as lossy WebP
func ConvertToWebP(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxImageWidth || bounds.Dy() > MaxImageHeight {
		img = imaging.Fit(img, MaxImageWidth, MaxImageHeight, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

func sanitizeFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" || folder == "." {
		return "misc"
	}
	return strings.ReplaceAll(folder, "..", "")
}
