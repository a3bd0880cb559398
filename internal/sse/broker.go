// Package sse pushes record activity to frontends over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeRecordLogged  = "record.logged"
	TypeRecordCreated = "record.created"
	TypeRecordUpdated = "record.updated"
	TypeRecordDeleted = "record.deleted"
	TypeIndexUpdated  = "index.updated"
)

const (
	clientBuffer = 64
	retryMillis  = 3000
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// message is one item on the broker's input queue. file is set for log file
// changes, which map to a record event plus a throttled index.updated.
type message struct {
	event Event
	file  *fileChange
}

type fileChange struct {
	kind string
	name string
}

// Broker fans events out to connected SSE clients. Client bookkeeping lives
// in a hub owned by one goroutine; the exported methods only enqueue requests.
type Broker struct {
	indexMin  time.Duration
	keepAlive time.Duration

	in      chan message
	join    chan chan []byte
	leave   chan chan []byte
	count   chan chan int
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits index.updated at most once per
// indexThrottle.
func NewBroker(indexThrottle time.Duration) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = 2 * time.Second
	}
	b := &Broker{
		indexMin:  indexThrottle,
		keepAlive: 15 * time.Second,
		in:        make(chan message, 256),
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		count:     make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// hub is the state owned by the broker goroutine.
type hub struct {
	clients   map[chan []byte]struct{}
	seq       uint64
	lastIndex time.Time
	indexMin  time.Duration
}

// frame renders one SSE message.
func frame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload)), nil
}

func (h *hub) broadcast(event Event) {
	h.seq++
	raw, err := frame(h.seq, event)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// Full buffer: this client misses the event.
		}
	}
}

func (h *hub) fileChanged(fc fileChange) {
	typ, ok := recordEventType(fc.kind)
	if !ok {
		return
	}
	h.broadcast(Event{Type: typ, Data: map[string]string{"file": fc.name}})

	if now := time.Now(); now.Sub(h.lastIndex) >= h.indexMin {
		h.lastIndex = now
		h.broadcast(Event{Type: TypeIndexUpdated, Data: map[string]string{}})
	}
}

func (h *hub) drop(ch chan []byte) {
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{}), indexMin: b.indexMin}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				h.drop(ch)
			}
			return
		case ch := <-b.join:
			h.clients[ch] = struct{}{}
		case ch := <-b.leave:
			h.drop(ch)
		case m := <-b.in:
			if m.file != nil {
				h.fileChanged(*m.file)
			} else {
				h.broadcast(m.event)
			}
		case resp := <-b.count:
			resp <- len(h.clients)
		}
	}
}

func recordEventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeRecordCreated, true
	case "updated":
		return TypeRecordUpdated, true
	case "deleted":
		return TypeRecordDeleted, true
	}
	return "", false
}

// enqueue hands v to the broker goroutine. It reports false once the broker
// is closed.
func enqueue[T any](b *Broker, ch chan T, v T) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the broker and closes every subscriber channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed when the
// client is unsubscribed or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !enqueue(b, b.join, ch) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	enqueue(b, b.leave, ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !enqueue(b, b.count, resp) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	enqueue(b, b.in, message{event: event})
}

// PublishFileEvent reports an indexed log file change (kind is created,
// updated or deleted) followed by a throttled index.updated. It matches
// index.EventCallback.
func (b *Broker) PublishFileEvent(kind, file string) {
	enqueue(b, b.in, message{file: &fileChange{kind: kind, name: file}})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	write := func(p []byte) {
		_, _ = w.Write(p)
		flusher.Flush()
	}
	write([]byte(fmt.Sprintf("retry: %d\n\n", retryMillis)))

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			write([]byte(": ping\n\n"))
		case msg, ok := <-ch:
			if !ok {
				return
			}
			write(msg)
		}
	}
}
