package sim

import (
	"github.com/rs/zerolog"
)

// EventLogger is a hook that writes every executed event and every process
// lifecycle change into a logger at trace level.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger zerolog.Logger) *EventLogger {
	h := new(EventLogger)
	h.logger = logger
	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosBeforeEvent:
		evt, ok := ctx.Item.(*Event)
		if !ok {
			return
		}

		h.logger.Trace().
			Float64("time", float64(evt.Time())).
			Uint64("seq", evt.ID()).
			Str("what", evt.What()).
			Msg("event")
	case HookPosProcessStart, HookPosProcessEnd, HookPosProcessInterrupt:
		p, ok := ctx.Item.(*Process)
		if !ok {
			return
		}

		e := h.logger.Trace().
			Float64("time", float64(ctx.Now)).
			Str("process", p.Name()).
			Str("pos", ctx.Pos.Name)
		if err, ok := ctx.Detail.(error); ok && err != nil {
			e = e.Err(err)
		}
		e.Msg("process")
	}
}
