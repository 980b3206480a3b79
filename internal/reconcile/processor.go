package reconcile

import (
	"context"

	"github.com/example/bookingsync/internal/hooks"
	"github.com/example/bookingsync/internal/internaltypes"
	"github.com/example/bookingsync/internal/mapping"
	"github.com/example/bookingsync/internal/reservation"
	"github.com/example/bookingsync/internal/status"
)

// Processor runs the mapping pipeline for one raw record and hands the
// result to the Engine.
type Processor struct {
	engine *Engine
	mapper *mapping.Mapper
	hooks  *hooks.Hooks
}

func NewProcessor(engine *Engine, mapper *mapping.Mapper, h *hooks.Hooks) *Processor {
	if mapper == nil {
		mapper = mapping.New(mapping.WithHooks(h))
	}
	return &Processor{engine: engine, mapper: mapper, hooks: h}
}

// Map applies the payload and field hooks around the mapper.
func (p *Processor) Map(platform, source string, record map[string]any) mapping.Mapped {
	record = p.hooks.BeforeMap(platform, source, record)
	mapped := p.mapper.Map(platform, record)
	fields := p.hooks.AfterMap(platform, mapped.Fields.Clone())
	if st := fields[reservation.FieldStatus]; st != "" {
		fields[reservation.FieldStatus] = string(status.Coerce(reservation.Status(st)))
	}
	mapped.Fields = fields
	mapped.Snapshot = mapping.Snapshot(fields, mapped.RawStatus)
	return mapped
}

// Reconcile hands an already mapped record to the engine.
func (p *Processor) Reconcile(ctx context.Context, platform string, mapped mapping.Mapped, existing *reservation.Reservation) reservation.Result {
	return p.engine.Reconcile(ctx, platform, mapped, existing)
}

// Process maps record and reconciles it. A nil record is a payload error.
func (p *Processor) Process(ctx context.Context, platform, source string, record map[string]any, existing *reservation.Reservation) reservation.Result {
	if len(record) == 0 {
		return reservation.Failed("", "no reservation data in payload", internaltypes.ErrPayload.Error())
	}
	return p.engine.Reconcile(ctx, platform, p.Map(platform, source, record), existing)
}
