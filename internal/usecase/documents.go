package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hszk-dev/vidshelf/internal/domain/repository"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeText   = "text/plain; charset=utf-8"
	contentTypeMarker = "application/octet-stream"
)

// readBytes downloads an object fully. Missing keys surface as repository.ErrObjectNotFound.
func readBytes(ctx context.Context, storage repository.ObjectStorage, key string) ([]byte, error) {
	reader, err := storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// readJSON decodes the document at key into v.
func readJSON(ctx context.Context, storage repository.ObjectStorage, key string, v any) error {
	data, err := readBytes(ctx, storage, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// writeJSON stores v at key, indented with two spaces.
func writeJSON(ctx context.Context, storage repository.ObjectStorage, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return storage.Upload(ctx, key, bytes.NewReader(data), contentTypeJSON)
}

func readText(ctx context.Context, storage repository.ObjectStorage, key string) (string, error) {
	data, err := readBytes(ctx, storage, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeText(ctx context.Context, storage repository.ObjectStorage, key, text string) error {
	return storage.Upload(ctx, key, bytes.NewReader([]byte(text)), contentTypeText)
}

// uploadFile streams a local file to key and returns its size.
func uploadFile(ctx context.Context, storage repository.ObjectStorage, localPath, key, contentType string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}

	if err := storage.Upload(ctx, key, file, contentType); err != nil {
		return 0, fmt.Errorf("storage upload: %w", err)
	}

	return info.Size(), nil
}

// downloadFile copies the object at key into localPath.
func downloadFile(ctx context.Context, storage repository.ObjectStorage, key, localPath string) error {
	reader, err := storage.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("storage download: %w", err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("copy to local file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close local file: %w", err)
	}

	return nil
}
