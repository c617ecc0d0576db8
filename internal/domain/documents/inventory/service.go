package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/tx"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/validation"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// StockEngine is the part of the stock service the inventory document needs.
type StockEngine interface {
	ApplyInventory(ctx context.Context, inventoryID id.ID, counts map[id.ID]int64) error
	RevertInventory(ctx context.Context, inventoryID id.ID) (stock.RevertReport, error)
	DeleteLinkedMovements(ctx context.Context, link entity.LinkRef) (map[id.ID]int64, error)
}

// CreateInput holds the header of a new inventory.
type CreateInput struct {
	InventoryDate time.Time `json:"inventory_date" validate:"required"`
	Kind          Kind      `json:"kind" validate:"required,oneof=before after standalone"`
	EventID       *string   `json:"event_id"`
	Comment       string    `json:"comment" validate:"max=500"`
}

// LineInput sets the counted quantity of one article.
type LineInput struct {
	ArticleID id.ID  `json:"article_id" validate:"required"`
	Counted   int64  `json:"counted" validate:"gte=0"`
	Comment   string `json:"comment" validate:"max=500"`
}

// Service provides business operations for inventory documents.
type Service struct {
	repo      Repository
	stock     StockEngine
	txManager tx.Manager
}

// NewService creates a new inventory service.
func NewService(repo Repository, stock StockEngine, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		stock:     stock,
		txManager: txManager,
	}
}

// Create creates an inventory header without lines.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Inventory, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	doc := NewInventory(in.InventoryDate, in.Kind, trimEventID(in.EventID), strings.TrimSpace(in.Comment))
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory created", "id", doc.ID, "kind", string(doc.Kind))
	return doc, nil
}

// UpdateHeader changes the date, kind, event and comment of an inventory.
// Lines and the stock effect of an applied inventory are not touched.
func (s *Service) UpdateHeader(ctx context.Context, inventoryID id.ID, in CreateInput) (*Inventory, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var doc *Inventory
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.Get(ctx, inventoryID)
		if err != nil {
			return err
		}

		doc.InventoryDate = in.InventoryDate.UTC()
		doc.Kind = in.Kind
		doc.EventID = trimEventID(in.EventID)
		doc.Comment = strings.TrimSpace(in.Comment)
		if err := doc.Validate(ctx); err != nil {
			return err
		}
		return s.repo.UpdateHeader(ctx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("update inventory %s: %w", inventoryID, err)
	}

	logger.Info(ctx, "inventory header updated", "id", inventoryID, "kind", string(doc.Kind))
	return doc, nil
}

func trimEventID(eventID *string) *string {
	if eventID == nil || strings.TrimSpace(*eventID) == "" {
		return nil
	}
	v := strings.TrimSpace(*eventID)
	return &v
}

// Get retrieves an inventory with lines.
func (s *Service) Get(ctx context.Context, inventoryID id.ID) (*Inventory, error) {
	doc, err := s.repo.Get(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, inventoryID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List returns inventory headers, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Inventory, error) {
	return s.repo.List(ctx, filter)
}

// UpsertLine sets the counted quantity of one article. Stock is unchanged
// until the inventory is applied.
func (s *Service) UpsertLine(ctx context.Context, inventoryID id.ID, in LineInput) (Line, error) {
	if err := validation.Struct(in); err != nil {
		return Line{}, err
	}

	line := Line{
		ID:          id.New(),
		InventoryID: inventoryID,
		ArticleID:   in.ArticleID,
		Counted:     in.Counted,
		Comment:     strings.TrimSpace(in.Comment),
	}

	var stored Line
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, inventoryID); err != nil {
			return err
		}
		var err error
		stored, err = s.repo.UpsertLine(ctx, line)
		return err
	})
	if err != nil {
		return Line{}, fmt.Errorf("save inventory line: %w", err)
	}
	return stored, nil
}

// DeleteLine removes the line of an article. An applied inventory keeps
// its stock effect for that article until it is applied again.
func (s *Service) DeleteLine(ctx context.Context, inventoryID, articleID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.DeleteLine(ctx, inventoryID, articleID)
	})
}

// Apply applies the current lines to stock: the previous effect of this
// inventory is reverted, then every line is applied, in one transaction.
func (s *Service) Apply(ctx context.Context, inventoryID id.ID) error {
	var lines int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Get(ctx, inventoryID)
		if err != nil {
			return err
		}
		lines = len(doc.Lines)

		if _, err := s.stock.RevertInventory(ctx, inventoryID); err != nil {
			return fmt.Errorf("revert previous application: %w", err)
		}
		if err := s.stock.ApplyInventory(ctx, inventoryID, doc.Counts()); err != nil {
			return err
		}
		return s.repo.SetApplied(ctx, inventoryID, true)
	})
	if err != nil {
		return fmt.Errorf("apply inventory %s: %w", inventoryID, err)
	}

	logger.Info(ctx, "inventory document applied", "id", inventoryID, "lines", lines)
	return nil
}

// Revert removes the stock effect of the inventory and keeps the document.
func (s *Service) Revert(ctx context.Context, inventoryID id.ID) (stock.RevertReport, error) {
	var report stock.RevertReport
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, inventoryID); err != nil {
			return err
		}
		var err error
		report, err = s.stock.RevertInventory(ctx, inventoryID)
		if err != nil {
			return err
		}
		return s.repo.SetApplied(ctx, inventoryID, false)
	})
	if err != nil {
		return stock.RevertReport{}, fmt.Errorf("revert inventory %s: %w", inventoryID, err)
	}
	return report, nil
}

// Delete reverts the inventory, then deletes its movements, lines and
// header. Either everything happens or nothing does.
func (s *Service) Delete(ctx context.Context, inventoryID id.ID) error {
	if id.IsNil(inventoryID) {
		return apperror.NewValidation("inventory is required")
	}

	var report stock.RevertReport
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, inventoryID); err != nil {
			return err
		}

		var err error
		report, err = s.stock.RevertInventory(ctx, inventoryID)
		if err != nil {
			return err
		}

		if _, err := s.stock.DeleteLinkedMovements(ctx, entity.LinkTo(entity.LinkInventory, inventoryID)); err != nil {
			return err
		}
		if err := s.repo.DeleteLines(ctx, inventoryID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := s.repo.Delete(ctx, inventoryID); err != nil {
			return fmt.Errorf("delete header: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete inventory %s: %w", inventoryID, err)
	}

	logger.Info(ctx, "inventory deleted",
		"id", inventoryID,
		"reverted_entries", report.Entries,
	)
	return nil
}
