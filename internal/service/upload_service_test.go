package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachmentUploaderStoresPhoto(t *testing.T) {
	storage := newMemoryStorage()
	uploader := NewAttachmentUploader(storage, 1, testLogger())

	stored, err := uploader.Store(context.Background(), AttachmentPhoto, 3, 12, newFileHeader(t, "My Desk!.PNG", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "image/png", stored.MimeType)
	require.Equal(t, "my-desk.png", stored.Name)
	require.Equal(t, int64(len(pngHeader)), stored.Size)
	require.True(t, strings.HasPrefix(stored.URI, "https://files.test/students/3/logs/12/"))
	require.True(t, strings.HasSuffix(stored.URI, "-my-desk.png"))
	require.Len(t, storage.objects, 1)
}

func TestAttachmentUploaderRejectsNonImagePhoto(t *testing.T) {
	storage := newMemoryStorage()
	uploader := NewAttachmentUploader(storage, 1, testLogger())

	_, err := uploader.Store(context.Background(), AttachmentPhoto, 3, 12, newFileHeader(t, "notes.png", []byte("plain text pretending to be an image")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, storage.objects)
}

func TestAttachmentUploaderAcceptsDocuments(t *testing.T) {
	uploader := NewAttachmentUploader(newMemoryStorage(), 1, testLogger())
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

	stored, err := uploader.Store(context.Background(), AttachmentDocument, 3, 12, newFileHeader(t, "weekly report.pdf", pdf))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", stored.MimeType)
	require.Equal(t, "weekly-report.pdf", stored.Name)

	text, err := uploader.Store(context.Background(), AttachmentDocument, 3, 12, newFileHeader(t, "notes", []byte("meeting notes for tuesday")))
	require.NoError(t, err)
	require.Equal(t, "notes.txt", text.Name)
}

func TestAttachmentUploaderRejectsOversizedFiles(t *testing.T) {
	uploader := NewAttachmentUploader(newMemoryStorage(), 1, testLogger())
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024*1024)...)

	_, err := uploader.Store(context.Background(), AttachmentPhoto, 3, 12, newFileHeader(t, "huge.png", payload))
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestAttachmentUploaderWithoutStorage(t *testing.T) {
	uploader := NewAttachmentUploader(nil, 1, testLogger())

	_, err := uploader.Store(context.Background(), AttachmentPhoto, 3, 12, newFileHeader(t, "desk.png", pngHeader))
	require.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = NewAttachmentUploader(newMemoryStorage(), 1, testLogger()).Store(context.Background(), AttachmentPhoto, 3, 12, nil)
	require.ErrorIs(t, err, ErrUploadMissing)
}

func TestAttachmentUploaderWrapsStorageErrors(t *testing.T) {
	storage := newMemoryStorage()
	storage.err = errors.New("bucket offline")
	uploader := NewAttachmentUploader(storage, 1, testLogger())

	_, err := uploader.Store(context.Background(), AttachmentPhoto, 3, 12, newFileHeader(t, "desk.png", pngHeader))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket offline")
}
