package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"
)

func TestVerificationService_SubmitDocument_Success(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)
	ctx := context.Background()

	providerID := uuid.New()
	docs.On("Create", ctx, mock.AnythingOfType("*models.ProviderDocument")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.ProviderDocument).ID = uuid.New()
		}).Return(nil)

	doc, err := svc.SubmitDocument(ctx, providerID, models.DocumentCategoryIdentity, "/media/documents/passport.pdf")
	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.Equal(t, providerID, doc.ProviderID)
}

func TestVerificationService_SubmitDocument_UnknownCategoryRejected(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)

	_, err := svc.SubmitDocument(context.Background(), uuid.New(), "diploma", "/media/documents/diploma.pdf")
	assert.True(t, apperror.IsValidation(err))
	docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVerificationService_SubmitDocument_BadURLRejected(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)

	_, err := svc.SubmitDocument(context.Background(), uuid.New(), models.DocumentCategoryBanking, "ftp://host/file.pdf")
	assert.True(t, apperror.IsValidation(err))
}

func TestVerificationService_ReviewDocument_ApproveAndReject(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)
	ctx := context.Background()

	reviewerID := uuid.New()
	docID := uuid.New()
	comment := strPtr("скан нечитаем")

	docs.On("GetByID", ctx, docID).Return(&models.ProviderDocument{
		ID: docID, ProviderID: uuid.New(),
		Category: models.DocumentCategoryIdentity, Status: models.DocumentStatusPending,
	}, nil).Once()
	docs.On("Review", ctx, docID, models.DocumentStatusApproved, reviewerID, (*string)(nil)).Return(nil)

	doc, err := svc.ReviewDocument(ctx, reviewerID, docID, true, nil)
	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, doc.Status)
	assert.Equal(t, reviewerID, *doc.ReviewedBy)

	docs.On("GetByID", ctx, docID).Return(&models.ProviderDocument{
		ID: docID, ProviderID: uuid.New(),
		Category: models.DocumentCategoryIdentity, Status: models.DocumentStatusPending,
	}, nil).Once()
	docs.On("Review", ctx, docID, models.DocumentStatusRejected, reviewerID, comment).Return(nil)

	doc, err = svc.ReviewDocument(ctx, reviewerID, docID, false, comment)
	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusRejected, doc.Status)
	assert.Equal(t, "скан нечитаем", *doc.Comment)
}

func TestVerificationService_ReviewDocument_AlreadyReviewedRejected(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)
	ctx := context.Background()

	docID := uuid.New()
	docs.On("GetByID", ctx, docID).Return(&models.ProviderDocument{
		ID: docID, Status: models.DocumentStatusApproved,
	}, nil)

	_, err := svc.ReviewDocument(ctx, uuid.New(), docID, false, nil)
	assert.True(t, apperror.IsStateConflict(err))
	docs.AssertNotCalled(t, "Review", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerificationService_IsFullyVerified(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)
	ctx := context.Background()

	partial := uuid.New()
	full := uuid.New()

	docs.On("CountApprovedCategories", ctx, partial).Return(2, nil)
	docs.On("CountApprovedCategories", ctx, full).Return(3, nil)

	verified, err := svc.IsFullyVerified(ctx, partial)
	assert.NoError(t, err)
	assert.False(t, verified)

	verified, err = svc.IsFullyVerified(ctx, full)
	assert.NoError(t, err)
	assert.True(t, verified)
}

func TestVerificationService_IsFullyVerified_RepoError(t *testing.T) {
	docs := new(mockDocumentRepo)
	svc := NewVerificationService(docs)

	providerID := uuid.New()
	docs.On("CountApprovedCategories", mock.Anything, providerID).Return(0, errors.New("db down"))

	_, err := svc.IsFullyVerified(context.Background(), providerID)
	assert.Error(t, err)
}
