// Package storage provides the on-disk file store used for question
// attachments and respondent uploads.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrFileRejected = errors.New("file rejected")
	ErrFileNotFound = errors.New("file not found")
)

// FileStore is the narrow interface the services consume.
type FileStore interface {
	Validate(header *multipart.FileHeader) error
	Save(header *multipart.FileHeader) (storedName string, err error)
	Delete(storedName string) error
	Open(storedName string) (io.ReadCloser, error)
}

// Extensions never accepted, regardless of declared content type.
var blockedExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".com": true,
	".msi": true,
	".scr": true,
	".sh":  true,
	".php": true,
	".js":  true,
}

var blockedContentTypes = map[string]bool{
	"application/x-msdownload":      true,
	"application/x-sh":              true,
	"application/x-executable":      true,
	"text/javascript":               true,
	"application/x-shockwave-flash": true,
}

type DiskStore struct {
	dir      string
	maxBytes int64
}

func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *DiskStore) Validate(header *multipart.FileHeader) error {
	if header == nil || header.Filename == "" {
		return fmt.Errorf("%w: missing file", ErrFileRejected)
	}
	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrFileRejected, s.maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if blockedExtensions[ext] {
		return fmt.Errorf("%w: extension %s is not allowed", ErrFileRejected, ext)
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
	if blockedContentTypes[contentType] {
		return fmt.Errorf("%w: content type %s is not allowed", ErrFileRejected, contentType)
	}
	return nil
}

// Save stores the upload under a collision-resistant name derived from the
// original base name, the current time, and a random suffix.
func (s *DiskStore) Save(header *multipart.FileHeader) (string, error) {
	if err := s.Validate(header); err != nil {
		return "", err
	}

	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	storedName := s.generateStoredName(header.Filename)
	dst, err := os.Create(filepath.Join(s.dir, storedName))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(filepath.Join(s.dir, storedName))
		return "", err
	}
	return storedName, nil
}

func (s *DiskStore) Delete(storedName string) error {
	path, err := s.resolve(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}

func (s *DiskStore) Open(storedName string) (io.ReadCloser, error) {
	path, err := s.resolve(storedName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// resolve rejects names that would escape the uploads directory.
func (s *DiskStore) resolve(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) {
		return "", ErrFileNotFound
	}
	return filepath.Join(s.dir, storedName), nil
}

func (s *DiskStore) generateStoredName(original string) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(filepath.Base(original), ext)
	base = sanitizeBaseName(base)

	suffix := make([]byte, 4)
	rand.Read(suffix)

	return fmt.Sprintf("%s_%d_%s%s", base, time.Now().UnixNano(), hex.EncodeToString(suffix), ext)
}

func sanitizeBaseName(base string) string {
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
