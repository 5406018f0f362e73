package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// multipartMemory is how much of a multipart body is buffered before spilling to disk.
const multipartMemory = 32 << 20

var errMissingFile = errors.New("missing file field")

// savedUpload is a multipart file copied to local disk.
type savedUpload struct {
	Path     string
	FileName string
}

func (u *savedUpload) Remove() {
	if u != nil {
		_ = os.Remove(u.Path)
	}
}

// parseMultipart bounds the body and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	return r.ParseMultipartForm(multipartMemory)
}

// saveFormFile copies the named multipart file into dir, keeping its extension so
// downstream content-type detection and key naming still work.
func saveFormFile(r *http.Request, field, dir string) (*savedUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errMissingFile
		}
		return nil, fmt.Errorf("read form file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	out, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return nil, fmt.Errorf("close upload: %w", err)
	}

	return &savedUpload{Path: out.Name(), FileName: name}, nil
}

// formValue reports a multipart value and whether the field was sent at all.
func formValue(r *http.Request, field string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// badUpload writes the response for a failed multipart parse or save.
func badUpload(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		Error(w, http.StatusRequestEntityTooLarge, "upload_too_large", "Upload exceeds the size limit")
	case errors.Is(err, errMissingFile):
		Error(w, http.StatusBadRequest, "missing_file", "A file field is required")
	default:
		Error(w, http.StatusBadRequest, "invalid_upload", "Invalid multipart body")
	}
}

// saveError writes the response for a failed saveFormFile.
func saveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMissingFile) {
		badUpload(w, err)
		return
	}
	handleServiceError(w, r, err)
}
