// Package events is the node's synchronous pub/sub layer. Handlers run
// inline on the emitting goroutine; anything slow belongs in the subscriber.
package events

import (
	"log"
	"sync"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit  EventType = "block_commit"
	EventTxExecuted   EventType = "tx_executed"
	EventTransfer     EventType = "transfer"
	EventUnitMinted   EventType = "unit_minted"
	EventClassIssued  EventType = "class_issued"
	EventIssueFailed  EventType = "issue_failed"
	EventRolesGranted EventType = "roles_granted"
	EventAutoPaused   EventType = "minting_auto_paused"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter fans events out to subscribers by type. Subscribe before Emit;
// there is no replay.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h for every future emission of typ.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to each subscriber of ev.Type in turn. A panicking
// handler is logged and skipped so it cannot halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		e.deliver(ev, h)
	}
}

func (e *Emitter) deliver(ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[events] handler panicked for %s: %v", ev.Type, r)
		}
	}()
	h(ev)
}
