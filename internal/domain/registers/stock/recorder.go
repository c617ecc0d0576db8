package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Recorder appends typed movements to the history.
// It writes inside the caller's transaction and never touches the cached
// stock; callers apply the signed amount themselves.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a movement recorder.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record writes one movement and returns it.
// An unknown type is logged, counted and skipped: the returned movement has a
// nil id and no row is written.
func (r *Recorder) Record(
	ctx context.Context,
	articleID id.ID,
	typ entity.MovementType,
	quantity int64,
	link entity.LinkRef,
	note string,
	occurredAt time.Time,
) (entity.Movement, error) {
	if quantity <= 0 {
		return entity.Movement{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity)
	}
	if id.IsNil(articleID) {
		return entity.Movement{}, apperror.NewValidation("article is required")
	}

	if !typ.Known() {
		logger.Warn(ctx, "unknown movement type skipped",
			"article_id", articleID,
			"type", string(typ),
			"quantity", quantity,
		)
		countUnknownType(ctx, string(typ), "record")
		return entity.Movement{}, nil
	}

	m := entity.NewMovement(articleID, typ, quantity, link, occurredAt)
	m.Note = note

	if err := r.repo.InsertMovement(ctx, m); err != nil {
		return entity.Movement{}, fmt.Errorf("insert movement: %w", err)
	}

	logger.Debug(ctx, "movement recorded",
		"movement_id", m.ID,
		"article_id", articleID,
		"type", string(typ),
		"quantity", quantity,
		"link_kind", string(link.Kind),
	)

	return m, nil
}

// RecordDelta records a signed stock delta as a magnitude movement:
// positive as posType, negative as exit. A zero delta writes nothing.
func (r *Recorder) RecordDelta(
	ctx context.Context,
	articleID id.ID,
	delta int64,
	posType entity.MovementType,
	link entity.LinkRef,
	note string,
) (entity.Movement, error) {
	switch {
	case delta > 0:
		return r.Record(ctx, articleID, posType, delta, link, note, time.Time{})
	case delta < 0:
		return r.Record(ctx, articleID, entity.MovementExit, -delta, link, note, time.Time{})
	default:
		return entity.Movement{}, nil
	}
}
