package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/tx"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/types"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/validation"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// StockEngine is the part of the stock service purchases need.
type StockEngine interface {
	RecordMovement(ctx context.Context, in stock.MovementInput) (stock.MovementResult, error)
	DeleteBatchesByPurchase(ctx context.Context, purchaseID id.ID) (int64, error)
	DeleteLinkedMovements(ctx context.Context, link entity.LinkRef) (map[id.ID]int64, error)
}

// PriceRecorder stores an article's latest purchase price.
type PriceRecorder interface {
	RecordPurchasePrice(ctx context.Context, articleID id.ID, price decimal.Decimal) error
}

// CreateInput describes a purchase.
type CreateInput struct {
	ArticleID    id.ID           `json:"article_id" validate:"required"`
	PurchaseDate time.Time       `json:"purchase_date" validate:"required"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Supplier     string          `json:"supplier" validate:"max=200"`
	InvoiceRef   string          `json:"invoice_ref" validate:"max=100"`
	FiscalYear   string          `json:"fiscal_year" validate:"max=20"`
}

// Result is returned by Create.
type Result struct {
	Purchase *Purchase `json:"purchase"`
	BatchID  id.ID     `json:"batchId"`
	Stock    int64     `json:"stock"`
}

// Service provides business operations for purchases.
type Service struct {
	repo      Repository
	stock     StockEngine
	prices    PriceRecorder
	txManager tx.Manager
}

// NewService creates a new purchase service.
func NewService(repo Repository, stock StockEngine, prices PriceRecorder, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		stock:     stock,
		prices:    prices,
		txManager: txManager,
	}
}

// Create records the purchase, its stock movement and FIFO batch, and the
// article's new purchase price in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Result, error) {
	p, err := newPurchase(ctx, id.New(), in)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		var err error
		result, err = s.book(ctx, p)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("create purchase: %w", err)
	}

	logger.Info(ctx, "purchase recorded",
		"purchase_id", p.ID,
		"article_id", p.ArticleID,
		"quantity", p.Quantity,
		"unit_price", p.UnitPrice.String(),
	)
	return result, nil
}

// Update replaces every field of a purchase. The old batch and movements
// are removed and the stock of the previous article recomputed, then the
// purchase is booked again as if it were new. Quantities already consumed
// from the old batch are not carried over.
func (s *Service) Update(ctx context.Context, purchaseID id.ID, in CreateInput) (Result, error) {
	p, err := newPurchase(ctx, purchaseID, in)
	if err != nil {
		return Result{}, err
	}

	var (
		result Result
		old    *Purchase
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		old, err = s.repo.Get(ctx, purchaseID)
		if err != nil {
			return err
		}
		if err := s.unbook(ctx, old.ID); err != nil {
			return err
		}

		p.CreatedAt = old.CreatedAt
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update purchase row: %w", err)
		}
		result, err = s.book(ctx, p)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("update purchase %s: %w", purchaseID, err)
	}

	logger.Info(ctx, "purchase updated",
		"purchase_id", p.ID,
		"article_id", p.ArticleID,
		"previous_article_id", old.ArticleID,
		"quantity", p.Quantity,
		"unit_price", p.UnitPrice.String(),
	)
	return result, nil
}

func newPurchase(ctx context.Context, purchaseID id.ID, in CreateInput) (*Purchase, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p := &Purchase{
		ID:           purchaseID,
		ArticleID:    in.ArticleID,
		PurchaseDate: in.PurchaseDate.UTC(),
		Quantity:     in.Quantity,
		UnitPrice:    in.UnitPrice,
		Supplier:     strings.TrimSpace(in.Supplier),
		InvoiceRef:   strings.TrimSpace(in.InvoiceRef),
		FiscalYear:   strings.TrimSpace(in.FiscalYear),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// book records the purchase movement with its batch and the article's
// latest purchase price. Must run inside a transaction.
func (s *Service) book(ctx context.Context, p *Purchase) (Result, error) {
	price := p.UnitPrice
	mv, err := s.stock.RecordMovement(ctx, stock.MovementInput{
		ArticleID:  p.ArticleID,
		Type:       entity.MovementPurchase,
		Quantity:   p.Quantity,
		LinkKind:   entity.LinkPurchase,
		LinkID:     &p.ID,
		Note:       p.Supplier,
		OccurredAt: p.PurchaseDate,
		UnitPrice:  &price,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.prices.RecordPurchasePrice(ctx, p.ArticleID, p.UnitPrice); err != nil {
		return Result{}, fmt.Errorf("update purchase price: %w", err)
	}

	result := Result{Purchase: p, Stock: mv.Stock}
	if mv.BatchID != nil {
		result.BatchID = *mv.BatchID
	}
	return result, nil
}

// unbook removes the batches and movements of a purchase and recomputes
// the touched articles.
func (s *Service) unbook(ctx context.Context, purchaseID id.ID) error {
	if _, err := s.stock.DeleteBatchesByPurchase(ctx, purchaseID); err != nil {
		return err
	}
	_, err := s.stock.DeleteLinkedMovements(ctx, entity.LinkTo(entity.LinkPurchase, purchaseID))
	return err
}

// Get returns one purchase.
func (s *Service) Get(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return s.repo.Get(ctx, purchaseID)
}

// List returns purchases, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Purchase, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes the purchase with its batch and movements, then recomputes
// the article's stock. Quantities already consumed from the batch are
// not reassigned to other batches.
func (s *Service) Delete(ctx context.Context, purchaseID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.Get(ctx, purchaseID)
		if err != nil {
			return err
		}

		if err := s.unbook(ctx, p.ID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete purchase row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete purchase %s: %w", purchaseID, err)
	}

	logger.Info(ctx, "purchase deleted", "purchase_id", purchaseID)
	return nil
}

// AveragePrice is the quantity-weighted purchase price of an article over
// every purchase dated on or before Until, consumed or not.
type AveragePrice struct {
	ArticleID id.ID           `json:"articleId"`
	Until     *time.Time      `json:"until,omitempty"`
	Purchases int             `json:"purchases"`
	Quantity  int64           `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// AveragePrice computes the weighted average purchase price of an article.
// A nil until covers all purchases. No purchases gives a zero price.
func (s *Service) AveragePrice(ctx context.Context, articleID id.ID, until *time.Time) (AveragePrice, error) {
	if id.IsNil(articleID) {
		return AveragePrice{}, apperror.NewValidation("article is required")
	}

	purchases, err := s.repo.List(ctx, ListFilter{ArticleID: &articleID, DateTo: until})
	if err != nil {
		return AveragePrice{}, fmt.Errorf("list purchases: %w", err)
	}

	avg := AveragePrice{ArticleID: articleID, Until: until, Purchases: len(purchases), Total: decimal.Zero}
	for _, p := range purchases {
		avg.Quantity += p.Quantity
		avg.Total = avg.Total.Add(p.Total())
	}
	avg.UnitPrice = types.WeightedUnitCost(avg.Total, avg.Quantity)
	return avg, nil
}
