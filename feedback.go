package erpsync

import (
	"sync"
	"time"
)

// FeedbackLevel classifies a feedback message.
type FeedbackLevel string

const (
	FeedbackInfo  FeedbackLevel = "info"
	FeedbackError FeedbackLevel = "error"
)

// Feedback is one transient user-facing status message, the equivalent of the
// auto-dismissing banner in the web UI.
type Feedback struct {
	Level   FeedbackLevel
	Message string
	At      time.Time
}

// FeedbackHandler receives published feedback.
type FeedbackHandler func(Feedback)

// FeedbackBus fans feedback out to subscribed handlers. Handlers run on the
// publishing goroutine; panics in handlers are swallowed so a broken consumer
// cannot break a sync operation.
type FeedbackBus struct {
	mu       sync.RWMutex
	handlers []FeedbackHandler
}

// NewFeedbackBus creates an empty bus.
func NewFeedbackBus() *FeedbackBus {
	return &FeedbackBus{}
}

// Subscribe registers a handler.
func (b *FeedbackBus) Subscribe(h FeedbackHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers a message to every handler.
func (b *FeedbackBus) Publish(level FeedbackLevel, message string) {
	b.mu.RLock()
	handlers := append([]FeedbackHandler(nil), b.handlers...)
	b.mu.RUnlock()

	fb := Feedback{Level: level, Message: message, At: time.Now()}
	for _, h := range handlers {
		func() {
			defer func() { recover() }()
			h(fb)
		}()
	}
}
