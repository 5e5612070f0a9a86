package avatars

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"staffdesk/internal/platform/metrics"
	"staffdesk/internal/platform/storage"
)

var (
	ErrEmpty       = errors.New("uploaded file is empty")
	ErrTooLarge    = errors.New("uploaded file is too large")
	ErrUnsupported = errors.New("profile photos must be a PNG, JPEG, GIF or WebP image")
)

// Folder is the key prefix every avatar is stored under.
const Folder = "avatars"

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type Service struct {
	Bucket   storage.Bucket
	MaxBytes int64
	Log      *zap.Logger
	now      func() time.Time
}

func NewService(bucket storage.Bucket, maxBytes int64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Bucket: bucket, MaxBytes: maxBytes, Log: log, now: time.Now}
}

// Upload stores an image under avatars/<unix-millis>-<name> and returns its
// public URL. Nothing is written when the content is rejected.
func (s *Service) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, s.MaxBytes+1))
	if err != nil {
		return "", s.fail("read", fmt.Errorf("read upload: %w", err))
	}
	if len(raw) == 0 {
		return "", s.fail("rejected", ErrEmpty)
	}
	if int64(len(raw)) > s.MaxBytes {
		return "", s.fail("rejected", ErrTooLarge)
	}
	contentType := http.DetectContentType(raw)
	if !allowed(contentType) {
		return "", s.fail("rejected", ErrUnsupported)
	}

	key := Key(s.now(), name)
	if err := s.Bucket.Upload(ctx, key, contentType, bytes.NewReader(raw)); err != nil {
		return "", s.fail("failed", err)
	}
	metrics.AvatarUploads.WithLabelValues("stored").Inc()

	url := s.Bucket.PublicURL(key)
	s.Log.Info("avatar stored", zap.String("key", key), zap.String("contentType", contentType), zap.Int("bytes", len(raw)))
	return url, nil
}

func (s *Service) fail(outcome string, err error) error {
	metrics.AvatarUploads.WithLabelValues(outcome).Inc()
	if outcome == "failed" {
		s.Log.Error("avatar upload failed", zap.Error(err))
	}
	return err
}

// Key builds the object key for a file uploaded at t.
func Key(t time.Time, name string) string {
	return fmt.Sprintf("%s/%d-%s", Folder, t.UnixMilli(), sanitize(name))
}

func sanitize(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "photo"
	}
	return out
}

func allowed(contentType string) bool {
	for _, candidate := range allowedTypes {
		if strings.EqualFold(candidate, contentType) {
			return true
		}
	}
	return false
}
