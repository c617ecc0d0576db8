package article

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/tx"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/validation"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// CreateInput holds the fields of a new article.
type CreateInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"max=100"`
	Unit     string `json:"unit" validate:"max=30"`
}

// UpdateInput holds editable article details. Nil fields are left as-is.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	Unit     *string `json:"unit" validate:"omitempty,max=30"`
}

// Service provides business logic for the article catalog.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates a new Article service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Create adds an article with zero stock.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Article, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	a := NewArticle(in.Name, in.Category, in.Unit)
	if err := a.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, a)
	}); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}

	logger.Info(ctx, "article created", "article_id", a.ID, "name", a.Name)
	return a, nil
}

// Get returns one article.
func (s *Service) Get(ctx context.Context, articleID id.ID) (*Article, error) {
	return s.repo.Get(ctx, articleID)
}

// List returns articles ordered by name.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Article, error) {
	return s.repo.List(ctx, filter)
}

// UpdateDetails changes name, category or unit. Stock is never touched here.
func (s *Service) UpdateDetails(ctx context.Context, articleID id.ID, in UpdateInput) (*Article, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var updated *Article
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.Get(ctx, articleID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			a.Name = strings.TrimSpace(*in.Name)
		}
		if in.Category != nil {
			a.Category = strings.TrimSpace(*in.Category)
		}
		if in.Unit != nil {
			a.Unit = strings.TrimSpace(*in.Unit)
		}
		if err := a.Validate(ctx); err != nil {
			return err
		}
		a.Touch()
		if err := s.repo.UpdateDetails(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update article %s: %w", articleID, err)
	}
	return updated, nil
}

// RecordPurchasePrice stores the latest unit cost of an article.
func (s *Service) RecordPurchasePrice(ctx context.Context, articleID id.ID, price decimal.Decimal) error {
	if price.IsNegative() {
		return apperror.NewValidation("purchase price cannot be negative")
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetPurchasePrice(ctx, articleID, price)
	})
}
