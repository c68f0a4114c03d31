// Package storage keeps portfolio photos and verification documents.
//
// Photos are written public so listings can link to them directly.
// Verification documents are private and only reachable through short-lived
// URLs handed to admins.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage is an object store addressed by slash-separated keys.
type Storage interface {
	// Put writes a new object. Keys are never reused, so writing to an
	// existing key fails with ErrKeyExists.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link to the object. Private objects get a link that
	// stops working after expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures a write.
type PutOptions struct {
	ContentType string
	// MaxSize rejects bodies larger than this many bytes with ErrTooLarge.
	// Zero means no limit.
	MaxSize int64
	Public  bool
}

// Providers accepted by New.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	Local    LocalConfig
	R2       R2Config
}

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	// BasePath is the directory objects are written under.
	BasePath string
	// BaseURL is where the directory is served, e.g. http://localhost:8080/files.
	BaseURL string
}

// R2Config configures Cloudflare R2.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// PublicURL is the bucket's public domain. When empty every URL is
	// presigned.
	PublicURL string
}

// New builds the provider named in cfg.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// PortfolioImageKey is profiles/{profileID}/portfolio/{uuid}{ext}.
func PortfolioImageKey(profileID uuid.UUID, filename string) string {
	return fmt.Sprintf("profiles/%s/portfolio/%s%s", profileID, uuid.New(), filepath.Ext(filename))
}

// PortfolioThumbnailKey is profiles/{profileID}/thumbnails/{uuid}.jpg.
// Thumbnails are always JPEG.
func PortfolioThumbnailKey(profileID uuid.UUID) string {
	return fmt.Sprintf("profiles/%s/thumbnails/%s.jpg", profileID, uuid.New())
}

// VerificationDocumentKey is profiles/{profileID}/verifications/{uuid}{ext}.
func VerificationDocumentKey(profileID uuid.UUID, filename string) string {
	return fmt.Sprintf("profiles/%s/verifications/%s%s", profileID, uuid.New(), filepath.Ext(filename))
}
