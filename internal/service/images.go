package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/frontyard/backend/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	imageKeyPrefix    = "images/"
	uploadConcurrency = 4
)

type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type ImageService struct {
	store   ObjectStore
	maxSize int64
	log     *zap.Logger
}

func NewImageService(store ObjectStore, maxSize int64, log *zap.Logger) *ImageService {
	return &ImageService{store: store, maxSize: maxSize, log: log}
}

// Upload stores every file concurrently and returns their public locations
// in input order. Nothing is uploaded if any file exceeds the size limit.
func (s *ImageService) Upload(ctx context.Context, files []*multipart.FileHeader) ([]model.UploadedFile, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range files {
		if f.Size > s.maxSize {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, baseName(f.Filename), s.maxSize)
		}
	}

	results := make([]model.UploadedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, f := range files {
		g.Go(func() error {
			name := baseName(f.Filename)
			location, err := s.put(gctx, f, imageKeyPrefix+uuid.NewString()+"-"+name)
			if err != nil {
				return fmt.Errorf("upload %s: %w", name, err)
			}
			results[i] = model.UploadedFile{Name: name, Location: location}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("images uploaded", zap.Int("count", len(results)))
	return results, nil
}

func (s *ImageService) put(ctx context.Context, f *multipart.FileHeader, key string) (string, error) {
	src, err := f.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	contentType := f.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.store.PutObject(ctx, key, src, f.Size, contentType)
}

func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
