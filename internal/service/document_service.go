package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openedu-labs/geoc-api/internal/models"
	"github.com/openedu-labs/geoc-api/pkg/config"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
	"github.com/openedu-labs/geoc-api/pkg/storage"
)

var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".rtf":  true,
}

type documentRepo interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

// SignedDownload is a time-limited link to a stored document.
type SignedDownload struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService stores syllabi and supporting files on disk and hands out
// signed, expiring download links instead of raw paths.
type DocumentService struct {
	documents documentRepo
	courses   courseFinder
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	cfg       config.DocumentsConfig
	logger    *zap.Logger
}

// NewDocumentService creates a new instance of DocumentService.
func NewDocumentService(
	documents documentRepo,
	courses courseFinder,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.DocumentsConfig,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		courses:   courses,
		store:     store,
		signer:    signer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Upload stores one file against a course.
func (s *DocumentService) Upload(ctx context.Context, actor *models.User, courseID string, header *multipart.FileHeader, tag models.DocumentTag) (*models.Document, error) {
	course, err := s.visibleCourse(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsParent() {
		return nil, appErrors.ErrNotParent
	}
	if tag != models.DocumentTagSyllabus && tag != models.DocumentTagSupporting {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document tag %q", tag))
	}
	if header.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedDocumentExtensions[ext] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not accepted", ext))
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document read failed")
	}
	defer file.Close()

	relPath := filepath.Join(courseID, uuid.NewString()+ext)
	if _, err := s.store.SaveStream(relPath, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document store failed")
	}

	doc := &models.Document{
		CourseID:  courseID,
		CreatedBy: actor.ID,
		Name:      filepath.Base(header.Filename),
		FilePath:  relPath,
		Tag:       tag,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		if cleanupErr := s.store.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("orphaned upload cleanup failed", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document create failed")
	}
	return doc, nil
}

// List returns the documents attached to a course.
func (s *DocumentService) List(ctx context.Context, actor *models.User, courseID string) ([]models.Document, error) {
	if _, err := s.visibleCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document list failed")
	}
	return docs, nil
}

// Link issues a signed, expiring download token for one document.
func (s *DocumentService) Link(ctx context.Context, actor *models.User, docID string) (*SignedDownload, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document lookup failed")
	}
	if _, err := s.visibleCourse(ctx, actor, doc.CourseID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(doc.ID, doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "download link failed")
	}
	return &SignedDownload{
		Token:     token,
		URL:       "/documents/download?token=" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a signed token and returns the file with its metadata.
// Token-bearing requests skip authentication; the signature is the grant.
func (s *DocumentService) Open(ctx context.Context, token string) (*models.Document, *os.File, error) {
	docID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrNotFound
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document lookup failed")
	}
	if doc.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	file, err := s.store.Open(doc.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document open failed")
	}
	return doc, file, nil
}

// Delete removes a document record and its file. Uploaders remove their own;
// reviewers remove any.
func (s *DocumentService) Delete(ctx context.Context, actor *models.User, docID string) error {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document lookup failed")
	}
	if doc.CreatedBy != actor.ID && !actor.IsManager() {
		return appErrors.ErrForbidden
	}
	if err := s.documents.Delete(ctx, docID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "document delete failed")
	}
	if err := s.store.Delete(doc.FilePath); err != nil {
		s.logger.Warn("stored file cleanup failed", zap.String("path", doc.FilePath), zap.Error(err))
	}
	return nil
}

func (s *DocumentService) visibleCourse(ctx context.Context, actor *models.User, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "course lookup failed")
	}
	if !actor.IsManager() && course.OwnerID != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	return course, nil
}
