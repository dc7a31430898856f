// Package progress implements the per-caller in-memory publish/subscribe
// channel broadcasting task lifecycle events to live observers. Delivery is
// best-effort: a slow or absent subscriber never blocks a publisher.
package progress

import (
	"sync"
	"time"

	"mediacore/internal/domain"
)

// Snapshot is a point-in-time status event for one task.
type Snapshot struct {
	NodeID      string             `json:"nodeId"`
	NodeKeyHint string             `json:"nodeKeyHint,omitempty"`
	TaskKind    domain.TaskKind    `json:"taskKind"`
	Vendor      string             `json:"vendor"`
	Status      domain.TaskStatus  `json:"status"`
	Progress    int                `json:"progress,omitempty"`
	Message     string             `json:"message,omitempty"`
	TaskID      string             `json:"taskId,omitempty"`
	Assets      []domain.TaskAsset `json:"assets,omitempty"`
	Raw         map[string]any     `json:"raw,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

const subscriberBuffer = 16

// defaultRetention bounds the per-caller ring of recent snapshots served to
// late subscribers via Pending.
const defaultRetention = 64

// Subscriber is one live observer attached to a caller's event stream. The
// bus owns the channel and closes it on Unsubscribe.
type Subscriber struct {
	C        chan Snapshot
	callerID string
}

// Bus fans snapshots out to live subscribers and keeps a short ring of
// recent snapshots per caller for poll-based recovery.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string]map[*Subscriber]bool
	pending   map[string][]Snapshot
	retention int
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subs:      make(map[string]map[*Subscriber]bool),
		pending:   make(map[string][]Snapshot),
		retention: defaultRetention,
	}
}

// Subscribe registers a live observer for one caller's events.
func (b *Bus) Subscribe(callerID string) *Subscriber {
	sub := &Subscriber{C: make(chan Snapshot, subscriberBuffer), callerID: callerID}
	b.mu.Lock()
	set, ok := b.subs[callerID]
	if !ok {
		set = make(map[*Subscriber]bool)
		b.subs[callerID] = set
	}
	set[sub] = true
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the observer and closes its channel. Safe to call
// concurrently with Publish; a second call is a no-op.
func (b *Bus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[sub.callerID]
	if !ok || !set[sub] {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.callerID)
	}
	close(sub.C)
}

// Publish fans a snapshot out to the caller's live subscribers and records
// it for Pending. Subscribers that are not draining their channel miss the
// event rather than blocking the publisher.
func (b *Bus) Publish(callerID string, snap Snapshot) {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	b.mu.Lock()
	ring := append(b.pending[callerID], snap)
	if len(ring) > b.retention {
		ring = ring[len(ring)-b.retention:]
	}
	b.pending[callerID] = ring

	for sub := range b.subs[callerID] {
		select {
		case sub.C <- snap:
		default:
		}
	}
	b.mu.Unlock()
}

// Pending returns recent snapshots for poll-based recovery, oldest first,
// optionally filtered by vendor.
func (b *Bus) Pending(callerID, vendorFilter string) []Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ring := b.pending[callerID]
	out := make([]Snapshot, 0, len(ring))
	for _, snap := range ring {
		if vendorFilter != "" && snap.Vendor != vendorFilter {
			continue
		}
		out = append(out, snap)
	}
	return out
}
