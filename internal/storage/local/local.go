package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"helpdesk/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalFileStore writes files below basePath and serves them under baseURL.
type LocalFileStore struct {
	basePath string
	baseURL  string
	log      *zap.Logger
}

func NewLocalFileStore(basePath, baseURL string, log *zap.Logger) (*LocalFileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalFileStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/"), log: log}, nil
}

func (s *LocalFileStore) Save(ctx context.Context, folder, contentType string, r io.Reader) (string, error) {
	key := path.Join(sanitizeFolder(folder), uuid.NewString()+mimeTypeToExt(contentType))
	filePath, err := s.safeJoin(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			s.log.Error("failed to close file after write error", zap.Error(cerr))
		}
		if rerr := os.Remove(filePath); rerr != nil {
			s.log.Error("failed to remove file after write error", zap.Error(rerr))
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			s.log.Error("failed to remove file after close error", zap.Error(rerr))
		}
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return key, nil
}

func (s *LocalFileStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", storage.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, extToMimeType(filePath), nil
}

func (s *LocalFileStore) Delete(ctx context.Context, key string) error {
	filePath, err := s.safeJoin(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalFileStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + key
}

// safeJoin resolves key relative to basePath and rejects directory traversal.
func (s *LocalFileStore) safeJoin(key string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func sanitizeFolder(folder string) string {
	folder = strings.Trim(strings.ToLower(folder), "/")
	folder = strings.ReplaceAll(folder, "..", "")
	if folder == "" {
		return "misc"
	}
	return folder
}

func mimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}

func extToMimeType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}
