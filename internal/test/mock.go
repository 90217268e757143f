// Mock methods required in Wanna tests are all here.

package test

import (
	"Wanna/internal/entity"
	"Wanna/pkg/middlewares"
	"fmt"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
)

// Global instance of gin MockRouter to be used during API testing.
var testRouter *gin.Engine

// Singleton to make sure testRouter is initialized only once.
var once sync.Once

func MockRouter() *gin.Engine {
	once.Do(func() {
		// Initializing the gin test server
		ginMode := os.Getenv("GIN_MODE")
		if ginMode == "" {
			ginMode = gin.TestMode
		}
		gin.SetMode(ginMode)
		testRouter = gin.New()
		testRouter.Use(gin.Recovery())
		testRouter.Use(middlewares.CORSMiddleware("*")) // CORS middleware which allows request from all origin
	})
	return testRouter
}

// Message recorded by MockSender.
type SentMessage struct {
	ConnID string
	Msg    entity.OutboundMessage
}

// MockSender records outbound messages instead of writing them to websocket connections.
type MockSender struct {
	mu      sync.Mutex
	sent    []SentMessage
	failing map[string]bool
}

func NewMockSender() *MockSender {
	return &MockSender{failing: make(map[string]bool)}
}

// FailOn makes every later Send to connID fail, as if the connection dropped.
func (m *MockSender) FailOn(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[connID] = true
}

func (m *MockSender) Send(connID string, msg entity.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[connID] {
		return fmt.Errorf("connection %s is closed", connID)
	}
	m.sent = append(m.sent, SentMessage{ConnID: connID, Msg: msg})
	return nil
}

// Sent returns every recorded message in send order.
func (m *MockSender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// SentTo returns the messages recorded for connID.
func (m *MockSender) SentTo(connID string) []entity.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var msgs []entity.OutboundMessage
	for _, s := range m.sent {
		if s.ConnID == connID {
			msgs = append(msgs, s.Msg)
		}
	}
	return msgs
}

// EventsTo returns the messages recorded for connID having the given event.
func (m *MockSender) EventsTo(connID, event string) []entity.OutboundMessage {
	var msgs []entity.OutboundMessage
	for _, msg := range m.SentTo(connID) {
		if msg.Event == event {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// Reset forgets every recorded message.
func (m *MockSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
