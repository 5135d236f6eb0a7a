package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDetectType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	webp := []byte("RIFF\x00\x00\x00\x00WEBPVP8 ")
	pdf := []byte("%PDF-1.7\n")

	mimeType, ok := DetectType(png)
	assert.True(t, ok)
	assert.Equal(t, "image/png", mimeType)

	mimeType, ok = DetectType(webp)
	assert.True(t, ok)
	assert.Equal(t, "image/webp", mimeType)

	mimeType, ok = DetectType(pdf)
	assert.True(t, ok)
	assert.Equal(t, "application/pdf", mimeType)

	_, ok = DetectType([]byte("#!/bin/sh\nrm -rf /"))
	assert.False(t, ok)

	_, ok = DetectType([]byte("RIFF\x00\x00\x00\x00WAVEfmt "))
	assert.False(t, ok)
}

type memoryFiles map[string]string

func (m memoryFiles) Save(ctx context.Context, folder string, contentType string, r io.Reader) (string, error) {
	return "", errors.New("read only")
}

func (m memoryFiles) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	body, ok := m[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), "application/pdf", nil
}

func (m memoryFiles) Delete(ctx context.Context, key string) error { return nil }

func (m memoryFiles) URL(key string) string { return "/files/" + key }

func TestFileHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(memoryFiles{"distributions/a.pdf": "%PDF-1.7"}, zap.NewNop()).RegisterRoutes(router, "/files/")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/distributions/a.pdf", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
