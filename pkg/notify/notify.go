// Package notify carries transient, user-facing notifications out of the
// core. The UI decides how to render and auto-dismiss them; the core only
// publishes.
package notify

import (
	"sync"

	"lume-companion/backend/pkg/logger"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient user-facing message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier publishes transient notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Sink receives published notifications, typically to push them over the
// websocket hub.
type Sink interface {
	Notify(n Notification)
}

// Broadcaster logs every notification and fans it out to attached sinks.
type Broadcaster struct {
	log *logger.Logger

	mu    sync.RWMutex
	sinks []Sink
}

// NewBroadcaster creates a notifier that logs via the given logger.
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Broadcaster{log: log}
}

// Attach registers a sink for future notifications.
func (b *Broadcaster) Attach(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

func (b *Broadcaster) Success(message string) {
	b.log.Info("notification", "level", string(LevelSuccess), "message", message)
	b.publish(Notification{Level: LevelSuccess, Message: message})
}

func (b *Broadcaster) Error(message string) {
	b.log.Warn("notification", "level", string(LevelError), "message", message)
	b.publish(Notification{Level: LevelError, Message: message})
}

func (b *Broadcaster) publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sink := range b.sinks {
		sink.Notify(n)
	}
}
