package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"rateintake/internal/domain"
	"rateintake/internal/logger"
	"rateintake/internal/pdfinspect"
	"rateintake/internal/port"
)

// IntakeInput is an uploaded multipart file.
type IntakeInput struct {
	SessionID uuid.UUID
	Category  domain.DocumentCategory
	File      multipart.File
	Header    *multipart.FileHeader
}

// Intake validates uploaded documents and archives them in object storage
// before they are handed to extraction.
type Intake struct {
	storage  port.ObjectStorage
	bucket   string
	maxBytes int64
}

// NewIntake creates an Intake. maxFileSizeMB bounds accepted uploads.
func NewIntake(storage port.ObjectStorage, bucket string, maxFileSizeMB int64) *Intake {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 25
	}
	return &Intake{storage: storage, bucket: bucket, maxBytes: maxFileSizeMB * 1024 * 1024}
}

// Accept checks extension, size and sniffed content type, records the page
// count of PDFs, and archives the document. The returned FileRef carries the
// content for extraction.
func (i *Intake) Accept(ctx context.Context, input IntakeInput) (domain.FileRef, error) {
	name := filepath.Base(input.Header.Filename)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return domain.FileRef{}, fmt.Errorf("%w: .%s", domain.ErrUnsupportedFileType, ext)
	}

	if input.Header.Size > i.maxBytes {
		return domain.FileRef{}, domain.ErrFileTooLarge
	}

	content, err := io.ReadAll(io.LimitReader(input.File, i.maxBytes+1))
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(content)) > i.maxBytes {
		return domain.FileRef{}, domain.ErrFileTooLarge
	}
	if len(content) == 0 {
		return domain.FileRef{}, fmt.Errorf("%w: empty file", domain.ErrUnsupportedFileType)
	}

	// Magic-byte detection looks at the first 512 bytes at most
	detected := http.DetectContentType(content)
	if !slices.Contains(domain.SniffedContentTypes[fileType], detected) {
		return domain.FileRef{}, fmt.Errorf("%w: %s content detected as %s", domain.ErrUnsupportedFileType, ext, detected)
	}

	log := logger.FromContext(ctx)
	ref := domain.FileRef{
		ID:          uuid.New(),
		Name:        name,
		Size:        int64(len(content)),
		ContentType: domain.AllowedFileTypes[fileType],
		Content:     content,
	}

	if fileType == domain.FileTypePDF {
		info, err := pdfinspect.Inspect(content)
		if err != nil {
			// the extraction service may still read it
			log.Warn("intake.Accept: could not inspect PDF", "file", name, "error", err)
		} else {
			ref.PageCount = info.Pages
			if !info.HasText {
				log.Info("intake.Accept: PDF has no text layer, extraction will rely on OCR", "file", name)
			}
		}
	}

	ref.StorageKey = fmt.Sprintf("sessions/%s/%s/%s/%s", input.SessionID, input.Category, ref.ID, name)
	log.Info("intake.Accept: archiving document",
		"file", name,
		"content_type", ref.ContentType,
		"bytes", ref.Size,
		"pages", ref.PageCount,
	)
	if _, err := i.storage.Upload(ctx, port.UploadInput{
		Bucket:      i.bucket,
		Key:         ref.StorageKey,
		Body:        bytes.NewReader(content),
		ContentType: ref.ContentType,
		Size:        ref.Size,
	}); err != nil {
		log.Error("intake.Accept: archive upload failed", "file", name, "error", err)
		return domain.FileRef{}, fmt.Errorf("%w: archiving document: %w", domain.ErrTransport, err)
	}
	return ref, nil
}

// Fetch returns the archived content of a file that no longer carries it.
func (i *Intake) Fetch(ctx context.Context, ref domain.FileRef) (domain.FileRef, error) {
	if len(ref.Content) > 0 {
		return ref, nil
	}
	if ref.StorageKey == "" {
		return domain.FileRef{}, fmt.Errorf("%w: %s has no archived copy", domain.ErrNotFound, ref.Name)
	}
	data, err := i.storage.Download(ctx, i.bucket, ref.StorageKey)
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("%w: downloading archived document: %w", domain.ErrTransport, err)
	}
	ref.Content = data
	return ref, nil
}

// Discard deletes an archived document. Failures are logged only.
func (i *Intake) Discard(ctx context.Context, ref domain.FileRef) {
	if ref.StorageKey == "" {
		return
	}
	if err := i.storage.Delete(ctx, i.bucket, ref.StorageKey); err != nil {
		logger.FromContext(ctx).Warn("intake.Discard: failed to delete archived document",
			"key", ref.StorageKey, "error", err)
	}
}

// URL returns a time-limited download link for an archived document.
func (i *Intake) URL(ctx context.Context, ref domain.FileRef, expirySeconds int64) (string, error) {
	if ref.StorageKey == "" {
		return "", fmt.Errorf("%w: %s has no archived copy", domain.ErrNotFound, ref.Name)
	}
	url, err := i.storage.GetPresignedURL(ctx, i.bucket, ref.StorageKey, expirySeconds)
	if err != nil {
		return "", fmt.Errorf("presigning document URL: %w", err)
	}
	return url, nil
}
