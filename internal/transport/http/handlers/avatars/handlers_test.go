package avatarshandler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/domain/avatars"
	"staffdesk/internal/platform/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func multipartRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/avatars", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	bucket, err := storage.NewLocal(dir, "/uploads")
	require.NoError(t, err)
	return NewHandler(avatars.NewService(bucket, 1024, nil), nil), dir
}

func TestHandleUploadStoresImage(t *testing.T) {
	h, dir := newHandler(t)
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, multipartRequest(t, "file", "my photo.png", pngBytes))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, strings.HasPrefix(env.Data.URL, "/uploads/avatars/"), env.Data.URL)
	assert.True(t, strings.HasSuffix(env.Data.URL, "-my-photo.png"), env.Data.URL)

	key := strings.TrimPrefix(env.Data.URL, "/uploads/")
	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)
}

func TestHandleUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		content  []byte
		wantCode int
	}{
		{name: "no file", wantCode: http.StatusBadRequest},
		{name: "empty file", field: "file", content: nil, wantCode: http.StatusBadRequest},
		{name: "not an image", field: "file", content: []byte("hello, plain text"), wantCode: http.StatusUnsupportedMediaType},
		{name: "too large", field: "file", content: append(append([]byte{}, pngBytes...), make([]byte, 2048)...), wantCode: http.StatusRequestEntityTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, dir := newHandler(t)
			rec := httptest.NewRecorder()
			h.HandleUpload(rec, multipartRequest(t, tc.field, "a.png", tc.content))
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())

			entries, _ := os.ReadDir(filepath.Join(dir, avatars.Folder))
			assert.Empty(t, entries, "rejected uploads write nothing")
		})
	}
}
