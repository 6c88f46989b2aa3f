package notify

import (
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Sink receives fire-and-forget user notifications.
type Sink interface {
	Success(userID, title, message string)
	Error(userID, title, message string)
}

// LogSink writes notifications to the service log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("notify")}
}

func (s *LogSink) Success(userID, title, message string) {
	s.log.Info(title, zap.String("userId", userID), zap.String("message", message))
}

func (s *LogSink) Error(userID, title, message string) {
	s.log.Warn(title, zap.String("userId", userID), zap.String("message", message))
}

type Message struct {
	Level   Level
	UserID  string
	Title   string
	Message string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Success(userID, title, message string) {
	r.add(Message{Level: LevelSuccess, UserID: userID, Title: title, Message: message})
}

func (r *Recorder) Error(userID, title, message string) {
	r.add(Message{Level: LevelError, UserID: userID, Title: title, Message: message})
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Multi fans a notification out to every sink.
type Multi []Sink

func (m Multi) Success(userID, title, message string) {
	for _, s := range m {
		s.Success(userID, title, message)
	}
}

func (m Multi) Error(userID, title, message string) {
	for _, s := range m {
		s.Error(userID, title, message)
	}
}
