package stock

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/DarkSario/2025-Interactifs-Gestion/stock"

var (
	metricsOnce        sync.Once
	unknownTypeCounter metric.Int64Counter
)

func unknownType() metric.Int64Counter {
	metricsOnce.Do(func() {
		c, err := otel.Meter(meterName).Int64Counter(
			"stock.movement.unknown_type",
			metric.WithDescription("Movements with a type outside the known set"),
		)
		if err != nil {
			otel.Handle(err)
		}
		unknownTypeCounter = c
	})
	return unknownTypeCounter
}

// countUnknownType increments the unknown movement type counter.
// phase is "record" or "fold".
func countUnknownType(ctx context.Context, raw string, phase string) {
	c := unknownType()
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", raw),
		attribute.String("phase", phase),
	))
}
