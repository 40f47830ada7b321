// Package storage archives the original uploaded files so a completed import
// can always be traced back to the exact bytes it came from.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo contains metadata about an archived upload file
type FileInfo struct {
	UploadID    uuid.UUID `json:"upload_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Internal storage path
	CreatedAt   time.Time `json:"created_at"`
}

// Archive defines the interface for original-file retention
type Archive interface {
	// Save stores the original file for an upload and returns its metadata
	Save(ctx context.Context, uploadID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Open retrieves the archived file for an upload
	Open(ctx context.Context, uploadID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes the archived file for an upload
	Delete(ctx context.Context, uploadID uuid.UUID) error

	// GetInfo returns metadata without opening the file
	GetInfo(ctx context.Context, uploadID uuid.UUID) (*FileInfo, error)
}
