// Package stream writes processing events to a live text/event-stream
// connection. The batch processor produces events on a channel; the emitter
// is the single consumer that turns them into wire frames, so business logic
// never touches the connection and the channel is the one cancellation
// boundary between them.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"billsheet/internal/models"
)

type Emitter struct {
	w      *bufio.Writer
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewEmitter wraps the response writer of one scan request. cancel is the
// batch context's cancel func; it fires when the client goes away.
func NewEmitter(w *bufio.Writer, cancel context.CancelFunc, logger *zap.Logger) *Emitter {
	return &Emitter{w: w, cancel: cancel, logger: logger}
}

// Pump drains events in emission order until the channel closes, flushing
// every event immediately. On a write failure it cancels the batch but keeps
// draining, so the producer can finish its in-flight work without blocking
// on a dead connection. Missed events are not redelivered.
func (e *Emitter) Pump(events <-chan models.ProcessingEvent) {
	disconnected := false
	for ev := range events {
		if disconnected {
			continue
		}
		if err := e.write(ev); err != nil {
			e.logger.Warn("event stream write failed, cancelling batch", zap.Error(err))
			e.cancel()
			disconnected = true
		}
	}
}

// write serializes one event as an SSE frame: the event kind on the event
// line, the payload as a single JSON data line.
func (e *Emitter) write(ev models.ProcessingEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.EventName(), err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", ev.EventName(), data); err != nil {
		return err
	}
	return e.w.Flush()
}
