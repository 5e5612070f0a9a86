package shared

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

// ErrNoFile is returned when the multipart form carries no file under the
// requested field.
var ErrNoFile = errors.New("no file uploaded")

const uploadMemory = 1 << 20

// OpenUpload parses a multipart body and opens the named file part. The
// caller closes the returned file.
func OpenUpload(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		return nil, nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, ErrNoFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", field, err)
	}
	return file, header, nil
}
