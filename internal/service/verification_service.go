package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/uslugi-backend/internal/repository"
	"github.com/ignatzorin/uslugi-backend/internal/validation"
)

// DocumentRepository описывает хранилище документов верификации.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.ProviderDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderDocument, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ProviderDocument, error)
	Review(ctx context.Context, id uuid.UUID, status string, reviewerID uuid.UUID, comment *string) error
	CountApprovedCategories(ctx context.Context, providerID uuid.UUID) (int, error)
}

// VerificationService ведёт верификацию исполнителей: загрузку документов и
// решения проверяющих. Полностью верифицированный исполнитель имеет по
// одобренному документу в каждой обязательной категории.
type VerificationService struct {
	docs DocumentRepository
}

// NewVerificationService создаёт сервис верификации.
func NewVerificationService(docs DocumentRepository) *VerificationService {
	return &VerificationService{docs: docs}
}

// SubmitDocument отправляет документ на проверку.
func (s *VerificationService) SubmitDocument(ctx context.Context, providerID uuid.UUID, category, fileURL string) (*models.ProviderDocument, error) {
	if !validDocumentCategory(category) {
		return nil, apperror.New(apperror.ErrCodeValidation, "недопустимая категория документа")
	}
	if err := validation.ValidatePhotoURL(fileURL); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	doc := &models.ProviderDocument{
		ProviderID: providerID,
		Category:   category,
		FileURL:    fileURL,
		Status:     models.DocumentStatusPending,
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReviewDocument фиксирует решение проверяющего по документу.
func (s *VerificationService) ReviewDocument(ctx context.Context, reviewerID, docID uuid.UUID, approve bool, comment *string) (*models.ProviderDocument, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "документ не найден")
		}
		return nil, err
	}

	if doc.Status != models.DocumentStatusPending {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "документ уже проверен")
	}

	status := models.DocumentStatusApproved
	if !approve {
		status = models.DocumentStatusRejected
	}

	if err := s.docs.Review(ctx, docID, status, reviewerID, comment); err != nil {
		return nil, err
	}

	doc.Status = status
	doc.ReviewedBy = &reviewerID
	doc.Comment = comment
	return doc, nil
}

// ListMyDocuments возвращает документы исполнителя.
func (s *VerificationService) ListMyDocuments(ctx context.Context, providerID uuid.UUID) ([]models.ProviderDocument, error) {
	return s.docs.ListByProvider(ctx, providerID)
}

// IsFullyVerified сообщает, прошёл ли исполнитель полную верификацию.
func (s *VerificationService) IsFullyVerified(ctx context.Context, providerID uuid.UUID) (bool, error) {
	count, err := s.docs.CountApprovedCategories(ctx, providerID)
	if err != nil {
		return false, err
	}
	return count >= len(models.RequiredDocumentCategories), nil
}

func validDocumentCategory(category string) bool {
	for _, c := range models.RequiredDocumentCategories {
		if c == category {
			return true
		}
	}
	return false
}
