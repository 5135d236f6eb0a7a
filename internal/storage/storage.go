package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

// FileStore keeps uploaded images and documents. Keys are opaque and safe to
// persist in the database.
type FileStore interface {
	Save(ctx context.Context, folder string, contentType string, r io.Reader) (key string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// Upload is a validated file ready to be saved.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) Reader() io.Reader {
	return bytes.NewReader(u.Data)
}

// ReadUpload reads a multipart file, enforces maxBytes and sniffs the
// content type instead of trusting the client header.
func ReadUpload(fh *multipart.FileHeader, maxBytes int64) (*Upload, error) {
	if fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, fh.Size, maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, maxBytes)
	}

	mimeType, ok := DetectType(data)
	if !ok {
		return nil, ErrUnsupportedType
	}

	return &Upload{Filename: fh.Filename, ContentType: mimeType, Data: data}, nil
}

// DetectType returns the sniffed MIME type and whether it is accepted.
func DetectType(data []byte) (string, bool) {
	mimeType := http.DetectContentType(data)
	return mimeType, allowedTypes[mimeType]
}
