// Package upload stores account photos and food images on the local disk.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxFoodImages is the number of images accepted with one food
const MaxFoodImages = 5

const (
	adminDir = "admin"
	userDir  = "users"
	foodDir  = "food"
)

var allowedTypes = []string{"image/jpeg", "image/png"}

// Storage writes validated images below a root directory. Returned paths are
// slash separated and relative to the working directory, e.g. images/food/food-<id>.png.
type Storage struct {
	root     string
	maxBytes int64
	log      *logrus.Logger
}

// NewStorage creates the upload directories under root
func NewStorage(root string, maxBytes int64, log *logrus.Logger) (*Storage, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, dir := range []string{adminDir, userDir, foodDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
		}
	}
	return &Storage{root: root, maxBytes: maxBytes, log: log}, nil
}

// Root returns the directory served as static content
func (s *Storage) Root() string {
	return s.root
}

// SaveAdminPhoto stores an admin profile photo named after the admin
func (s *Storage) SaveAdminPhoto(fh *multipart.FileHeader, firstname, lastname string) (string, error) {
	prefix := slug(firstname) + "-" + slug(lastname)
	return s.save(fh, adminDir, prefix)
}

func (s *Storage) SaveUserPhoto(fh *multipart.FileHeader) (string, error) {
	return s.save(fh, userDir, "user")
}

// SaveFoodImages stores every image or none of them.
func (s *Storage) SaveFoodImages(files []*multipart.FileHeader) ([]string, error) {
	if len(files) > MaxFoodImages {
		return nil, models.ErrTooManyFiles.WithDetails(fmt.Sprintf("a food accepts at most %d images", MaxFoodImages))
	}
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := s.save(fh, foodDir, "food")
		if err != nil {
			s.Remove(paths...)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Remove deletes stored files, e.g. after the record that referenced them failed to save.
func (s *Storage) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(filepath.FromSlash(p)); err != nil && !os.IsNotExist(err) {
			s.log.WithError(err).WithField("path", p).Warn("Failed to remove uploaded file")
		}
	}
}

func (s *Storage) save(fh *multipart.FileHeader, dir, prefix string) (string, error) {
	if fh.Size > s.maxBytes {
		return "", models.ErrFileTooLarge.WithDetails(
			fmt.Sprintf("%s exceeds the %d byte limit", fh.Filename, s.maxBytes))
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return "", models.ErrInvalidFile
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload %s: %w", fh.Filename, err)
	}

	name := prefix + "-" + uuid.NewString() + mtype.Extension()
	path := filepath.Join(s.root, dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	// the size header is client supplied, so the copy enforces the limit as well
	n, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = models.ErrFileTooLarge.WithDetails(fmt.Sprintf("%s exceeds the %d byte limit", fh.Filename, s.maxBytes))
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	s.log.WithFields(logrus.Fields{"path": path, "bytes": n}).Debug("Stored upload")
	return filepath.ToSlash(path), nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return "admin"
	}
	return s
}
