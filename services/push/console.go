package pushsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/shuleos/shule/core"
	"github.com/shuleos/shule/core/notif"
)

// consoleSink logs notifications instead of delivering them. Default in DEV;
// a real delivery channel plugs in behind notif.Sink.
type consoleSink struct {
	logger core.Logger
}

var _ notif.Sink = (*consoleSink)(nil)

func NewConsoleSink(logger core.Logger) *consoleSink {
	return &consoleSink{logger: logger}
}

func (s consoleSink) Push(_ context.Context, userID string, payload notif.Payload) error {
	s.logger.Info(
		fmt.Sprintf("notification for %s: %s", userID, payload.Title),
		map[string]interface{}{"body": payload.Body, "data": payload.Data},
	)
	return nil
}

// dummySink records pushes for tests.
type dummySink struct {
	mu     sync.Mutex
	pushes map[string][]notif.Payload
}

var _ notif.Sink = (*dummySink)(nil)

func NewDummySink() *dummySink {
	return &dummySink{pushes: make(map[string][]notif.Payload)}
}

func (s *dummySink) Push(_ context.Context, userID string, payload notif.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes[userID] = append(s.pushes[userID], payload)
	return nil
}

func (s *dummySink) Pushed(userID string) []notif.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes[userID]
}
