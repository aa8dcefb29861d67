package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resumedrop/apiserver/internal/logger"
	"github.com/resumedrop/apiserver/internal/storage"
	"github.com/resumedrop/apiserver/types"
)

const (
	// MaxResumeBytes is the upload size ceiling.
	MaxResumeBytes = 5 << 20

	// PDFContentType is the only accepted upload media type.
	PDFContentType = "application/pdf"
)

// Upload failure modes surfaced to the handler layer.
var (
	ErrMissingFile          = errors.New("no file uploaded")
	ErrUnsupportedMediaType = errors.New("only PDF files are allowed")
	ErrFileTooLarge         = errors.New("uploaded file too large")
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ResumeRepository defines persistence operations for resume records.
type ResumeRepository interface {
	Create(ctx context.Context, resume types.Resume) (types.Resume, error)
	ListByUser(ctx context.Context, userID int) ([]types.Resume, error)
}

// ResumeService owns the upload flow: it validates the file, writes it
// to object storage under a generated key, and records the metadata.
type ResumeService struct {
	repo    ResumeRepository
	storage *storage.Storage
}

func NewResumeService(repo ResumeRepository, st *storage.Storage) *ResumeService {
	return &ResumeService{repo: repo, storage: st}
}

// UploadInput carries one validated upload request.
type UploadInput struct {
	OwnerID        int
	Name           string
	SubmissionDate time.Time
	Filename       string
	ContentType    string
	Data           []byte
}

// Upload stores the file and then creates the registry record. The
// file is persisted first so a failure between the two steps can only
// leave an orphaned file, never a record pointing at nothing. A record
// insert failure after a successful write is logged with the stored
// key so the orphan can be reconciled.
func (s *ResumeService) Upload(ctx context.Context, in UploadInput) (types.Resume, error) {
	if len(in.Data) == 0 {
		return types.Resume{}, ErrMissingFile
	}
	if in.ContentType != PDFContentType {
		return types.Resume{}, ErrUnsupportedMediaType
	}
	if len(in.Data) > MaxResumeBytes {
		return types.Resume{}, ErrFileTooLarge
	}

	key := ObjectKey(in.Filename)
	if err := s.storage.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), in.ContentType); err != nil {
		return types.Resume{}, fmt.Errorf("store file: %w", err)
	}

	resume, err := s.repo.Create(ctx, types.Resume{
		UserID:         in.OwnerID,
		Name:           in.Name,
		SubmissionDate: in.SubmissionDate,
		FilePath:       key,
		FileName:       in.Filename,
	})
	if err != nil {
		logger.Log.Errorw("resume record insert failed after file write, orphaned object remains",
			"key", key, "owner", in.OwnerID, "err", err)
		return types.Resume{}, fmt.Errorf("record resume: %w", err)
	}
	return resume, nil
}

// ListForOwner returns the owner's resumes, newest first.
func (s *ResumeService) ListForOwner(ctx context.Context, ownerID int) ([]types.Resume, error) {
	return s.repo.ListByUser(ctx, ownerID)
}

// OpenFile opens the stored artifact for the given key.
func (s *ResumeService) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.storage.Get(ctx, key)
}

// ObjectKey builds a storage key for an uploaded filename: upload
// timestamp, the sanitized base name, and a random fragment so
// concurrent uploads of the same file never collide. Path separators
// and any character outside [a-zA-Z0-9.-] are squashed, so a hostile
// filename cannot escape the storage location.
func ObjectKey(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = unsafeKeyChars.ReplaceAllString(base, "_")
	if base == "" || base == "." {
		base = "resume.pdf"
	}
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), base, uuid.NewString()[:8])
}
