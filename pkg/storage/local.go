package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalArchive implements Archive using the local filesystem
type LocalArchive struct {
	basePath string
}

// NewLocalArchive creates a new local filesystem archive
func NewLocalArchive(basePath string) (*LocalArchive, error) {
	// Ensure base path exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &LocalArchive{basePath: basePath}, nil
}

// Save stores the original file for an upload and returns its metadata
func (s *LocalArchive) Save(ctx context.Context, uploadID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	uploadDir := filepath.Join(s.basePath, uploadID.String())
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	storedFilename := sanitizeFilename(filename)
	if storedFilename == "" {
		storedFilename = "upload.csv"
	}
	filePath := filepath.Join(uploadDir, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		UploadID:    uploadID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        storedFilename,
		CreatedAt:   time.Now(),
	}

	if err := s.saveMetadata(uploadID, info); err != nil {
		os.Remove(filePath) // Cleanup on error
		return nil, err
	}

	return info, nil
}

// Open retrieves the archived file for an upload
func (s *LocalArchive) Open(ctx context.Context, uploadID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, uploadID)
	if err != nil {
		return nil, nil, err
	}

	filePath := filepath.Join(s.basePath, uploadID.String(), info.Path)
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// Delete removes the archived file for an upload
func (s *LocalArchive) Delete(ctx context.Context, uploadID uuid.UUID) error {
	info, err := s.GetInfo(ctx, uploadID)
	if err != nil {
		return err
	}

	filePath := filepath.Join(s.basePath, uploadID.String(), info.Path)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	os.Remove(s.metaPath(uploadID))
	return nil
}

// GetInfo returns metadata without opening the file
func (s *LocalArchive) GetInfo(ctx context.Context, uploadID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(uploadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no archived file for upload %s", uploadID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

func (s *LocalArchive) metaPath(uploadID uuid.UUID) string {
	return filepath.Join(s.basePath, uploadID.String(), ".meta.json")
}

// saveMetadata saves file metadata to a JSON file
func (s *LocalArchive) saveMetadata(uploadID uuid.UUID, info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(uploadID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
