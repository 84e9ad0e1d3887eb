package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-intern-api/internal/observability"
)

var (
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrStorageUnavailable indicates no attachment storage is configured.
	ErrStorageUnavailable = errors.New("attachment storage not configured")
)

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AttachmentKind selects the accepted file types of an upload.
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
)

// StoredFile describes an attachment after it reached storage.
type StoredFile struct {
	URI      string
	Name     string
	MimeType string
	Size     int64
}

// AttachmentUploader validates log attachments and hands them to storage.
type AttachmentUploader interface {
	Store(ctx context.Context, kind AttachmentKind, ownerID, logID uint, file *multipart.FileHeader) (StoredFile, error)
}

type attachmentUploader struct {
	storage FileStorage
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewAttachmentUploader constructs an uploader bounded by maxSizeMB.
func NewAttachmentUploader(storage FileStorage, maxSizeMB int, logger zerolog.Logger) AttachmentUploader {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &attachmentUploader{
		storage: storage,
		logger:  logger.With().Str("component", "attachment_uploader").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/gema-intern-api/internal/service/upload"),
	}
}

func (s *attachmentUploader) Store(ctx context.Context, kind AttachmentKind, ownerID, logID uint, file *multipart.FileHeader) (StoredFile, error) {
	ctx, span := s.tracer.Start(ctx, "attachment.store")
	defer span.End()

	span.SetAttributes(
		attribute.String("attachment.kind", string(kind)),
		attribute.Int64("attachment.log_id", int64(logID)),
		attribute.Int64("attachment.max_bytes", s.maxSize),
	)

	if s.storage == nil {
		span.SetStatus(codes.Error, "storage unavailable")
		return StoredFile{}, ErrStorageUnavailable
	}
	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return StoredFile{}, ErrUploadMissing
	}

	if file.Size > s.maxSize {
		return StoredFile{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return StoredFile{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return StoredFile{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return StoredFile{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("attachment.detected_mime", detected.String()))
	if !allowedAttachment(kind, detected) {
		return StoredFile{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}

	name := sanitizeFileName(file.Filename, detected.Extension())
	objectName := fmt.Sprintf("students/%d/logs/%d/%s-%s", ownerID, logID, uuid.NewString(), name)

	uri, err := s.storage.Upload(ctx, objectName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		s.logger.Error().Err(err).Str("object", objectName).Msg("failed to store attachment")
		return StoredFile{}, s.reject(span, "storage", fmt.Errorf("store attachment: %w", err))
	}

	span.SetStatus(codes.Ok, "stored")

	return StoredFile{
		URI:      uri,
		Name:     name,
		MimeType: detected.String(),
		Size:     int64(buf.Len()),
	}, nil
}

func (s *attachmentUploader) reject(span trace.Span, reason string, err error) error {
	observability.UploadsRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return err
}

var documentTypes = []string{
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/zip",
}

func allowedAttachment(kind AttachmentKind, detected *mimetype.MIME) bool {
	if strings.HasPrefix(detected.String(), "image/") {
		return true
	}
	if kind != AttachmentDocument {
		return false
	}
	for _, allowed := range documentTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "attachment"
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = detectedExt
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
