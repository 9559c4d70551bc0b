// Package auditlog records audit events off the request path. Handlers
// call Record and move on; a single worker drains a buffered channel into
// the audit store. A full buffer drops the event with a log line rather
// than stalling a request.
package auditlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cadetlink/cadetlink/internal/app/core/ops"
	"github.com/cadetlink/cadetlink/internal/app/store/audit"
)

// Event types recorded across the portal.
const (
	EventLogin                = "login"
	EventLogout               = "logout"
	EventSignup               = "signup"
	EventProfileUpdated       = "profile_updated"
	EventProfileDeleted       = "profile_deleted"
	EventCadetEnrolled        = "cadet_enrolled"
	EventCadetApproved        = "cadet_approved"
	EventCadetYearsUpdated    = "cadet_years_updated"
	EventCampCreated          = "camp_created"
	EventCampUpdated          = "camp_updated"
	EventCampDeleted          = "camp_deleted"
	EventRegistrationCreated  = "registration_created"
	EventRegistrationAccepted = "registration_accepted"
	EventRegistrationRejected = "registration_rejected"
)

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Sink is where drained events land. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, e audit.Entry) error
}

// Recorder accepts events without blocking and writes them in the
// background. A nil *Recorder is safe: Record and Close are no-ops, so
// tests and disabled configurations need no stub.
type Recorder struct {
	ch   chan audit.Entry
	sink Sink
	log  *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts the drain worker.
func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	r := &Recorder{
		ch:   make(chan audit.Entry, defaultBuffer),
		sink: sink,
		log:  logger,
		done: make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer close(r.done)
	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.sink.Log(ctx, e); err != nil {
			r.log.Error("audit write failed",
				zap.String("type", e.Type),
				zap.String("user_uid", e.UserUID),
				zap.Error(err))
		}
		cancel()
	}
}

// Record queues one event. Never blocks; a full buffer drops the event.
func (r *Recorder) Record(actor ops.Actor, eventType, details string) {
	if r == nil {
		return
	}
	e := audit.Entry{
		Type:      eventType,
		UserUID:   actor.UID,
		User:      actor.Name,
		Role:      actor.Role,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	select {
	case r.ch <- e:
	default:
		r.log.Warn("audit buffer full, event dropped",
			zap.String("type", eventType),
			zap.String("user_uid", actor.UID))
	}
}

// Close stops accepting events and waits for queued events to flush.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		close(r.ch)
		<-r.done
	})
}
