package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/utils"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// FileStore keeps uploaded note files and hands back a public URL.
type FileStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// NoteKey builds an object key that cannot collide between uploads.
func NoteKey(courseID uint, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return fmt.Sprintf("notes/%d/%s-%s", courseID, uuid.NewString(), base)
}

type gcsFileStore struct {
	log       *utils.Logger
	client    *storage.Client
	bucket    string
	cdnDomain string
}

func NewGCSFileStore(ctx context.Context, cfg *config.Config, log *utils.Logger) (FileStore, error) {
	if cfg.NotesBucket == "" {
		return nil, fmt.Errorf("missing env var NOTES_GCS_BUCKET")
	}
	opts := append(clientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	log.Info("Object storage initialized", "bucket", cfg.NotesBucket, "cdn_domain", cfg.NotesCDNDomain)
	return &gcsFileStore{
		log:       log.With("service", "FileStore"),
		client:    client,
		bucket:    cfg.NotesBucket,
		cdnDomain: cfg.NotesCDNDomain,
	}, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *gcsFileStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", key, err)
	}
	s.log.Debug("Uploaded object", "key", key)
	return s.PublicURL(key), nil
}

func (s *gcsFileStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *gcsFileStore) PublicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
