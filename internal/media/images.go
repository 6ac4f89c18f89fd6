package media

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pyae198022/ShopHub/internal/apperr"
)

const (
	MaxWidth    = 800
	jpegQuality = 80
)

// ImageStore writes product images to Dir and serves them under URLPrefix.
type ImageStore struct {
	Dir       string
	URLPrefix string
}

func NewImageStore(dir, urlPrefix string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &ImageStore{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save decodes a PNG or JPEG upload, shrinks it to MaxWidth keeping the
// aspect ratio, re-encodes it as JPEG and returns its public URL.
func (s *ImageStore) Save(filename string, r io.Reader) (string, error) {
	const op = "media.Save"
	var img image.Image
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return "", apperr.Validationf(op, "Unsupported image format. Only PNG, JPG, JPEG are allowed.")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, op, "Failed to decode image.", err)
	}

	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	name := uuid.NewString() + ".jpg"
	out, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("error saving image file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("error encoding image: %w", err)
	}
	slog.Debug("Saved product image", "file", name)
	return s.URLPrefix + "/" + name, nil
}

// Remove deletes an image previously returned by Save. URLs outside the
// store are ignored.
func (s *ImageStore) Remove(url string) {
	if !strings.HasPrefix(url, s.URLPrefix+"/") {
		return
	}
	name := filepath.Base(strings.TrimPrefix(url, s.URLPrefix+"/"))
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove image", "file", name, "error", err)
	}
}
