package idstring

import (
	"github.com/zeusync/idstring/internal/core/events/bus"
	"github.com/zeusync/idstring/internal/core/observability/log"
)

// Bus event types.
const (
	// EventInitialized is published after every build with InitializedData.
	EventInitialized = "idstring.initialized"
	// EventReload asks a watching registry to rebuild. A Declarations
	// payload replaces the declaration set first.
	EventReload = "idstring.reload"

	eventSource = "idstring.registry"
)

// InitializedData is the payload of EventInitialized.
type InitializedData struct {
	Generation  uint64
	Elements    int
	Fingerprint uint64
}

func (r *Registry) announce(t *table) {
	if r.bus == nil {
		return
	}
	data := InitializedData{
		Generation:  t.generation,
		Elements:    len(t.attrs) - 1,
		Fingerprint: t.fingerprint,
	}
	if err := r.bus.Publish(bus.NewEvent(EventInitialized, eventSource, data)); err != nil {
		r.logger.Error("idstring: initialized handler failed", log.Error(err))
	}
}

// WatchReload rebuilds the registry whenever EventReload is published on b.
func (r *Registry) WatchReload(b bus.EventBus) (bus.Subscription, error) {
	return b.Subscribe(EventReload, func(event bus.Event) error {
		switch d := event.Data().(type) {
		case Declarations:
			r.Replace(d)
		case *Declarations:
			if d != nil {
				r.Replace(*d)
			}
		}
		r.logger.Info("idstring: reload requested", log.String("source", event.Source()))
		r.Reload()
		return nil
	})
}
