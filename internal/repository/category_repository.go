package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/uslugi-backend/internal/models"
)

// ErrCategoryNotFound возвращается, когда категория не найдена.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryRepository отвечает за справочник категорий услуг.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository создаёт новый экземпляр.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetCategory возвращает категорию по идентификатору.
func (r *CategoryRepository) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.GetContext(ctx, &category, `SELECT * FROM categories WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("category repository: get %w", err)
	}
	return &category, nil
}

// ListCategories возвращает все категории.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("category repository: list %w", err)
	}
	return categories, nil
}
