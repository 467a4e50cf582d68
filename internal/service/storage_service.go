package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
)

// StorageProvider abstracts where uploaded task attachments live.
type StorageProvider interface {
	Upload(ctx context.Context, file *multipart.FileHeader, objectName string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

type LocalStorageProvider struct {
	BasePath string
	BaseURL  string
}

func NewLocalStorageProvider(basePath, baseURL string) *LocalStorageProvider {
	return &LocalStorageProvider{BasePath: basePath, BaseURL: baseURL}
}

func (p *LocalStorageProvider) Upload(_ context.Context, file *multipart.FileHeader, objectName string) (string, error) {
	dst := filepath.Join(p.BasePath, objectName)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return strings.TrimRight(p.BaseURL, "/") + "/" + objectName, nil
}

func (p *LocalStorageProvider) Delete(_ context.Context, objectName string) error {
	return os.Remove(filepath.Join(p.BasePath, objectName))
}

type MinioStorageProvider struct {
	client *minio.Client
	bucket string
}

func NewMinioStorageProvider(cfg config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStorageProvider{client: client, bucket: cfg.Bucket}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, file *multipart.FileHeader, objectName string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = p.client.PutObject(ctx, p.bucket, objectName, src, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", p.client.EndpointURL().String(), p.bucket, objectName), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, objectName string) error {
	return p.client.RemoveObject(ctx, p.bucket, objectName, minio.RemoveObjectOptions{})
}

// NewStorageProvider builds the provider named in the configuration.
func NewStorageProvider(cfg config.StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "minio":
		return NewMinioStorageProvider(cfg)
	default:
		return NewLocalStorageProvider(cfg.LocalPath, cfg.BaseURL), nil
	}
}

// ObjectName builds a collision-free storage key for a task attachment.
func ObjectName(taskID, filename string) string {
	return fmt.Sprintf("tasks/%s/%s_%s", taskID, model.GenerateUUID()[:8], filepath.Base(filename))
}
