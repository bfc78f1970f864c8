package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTransport simulates a carrier for local development and tests. It
// succeeds with the configured rate and can inject latency to exercise
// the dispatcher's timeout path.
type MockTransport struct {
	SuccessRate float64       // 0..1, defaults to 0.9 via NewMockTransport
	Latency     time.Duration // applied to every send

	mu   sync.Mutex
	rand *rand.Rand
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		SuccessRate: 0.9,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockTransport) Send(ctx context.Context, phone, body string) (SendResult, error) {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return SendResult{}, ctx.Err()
		}
	}

	m.mu.Lock()
	r := m.roll()
	m.mu.Unlock()

	if r >= m.SuccessRate {
		return SendResult{}, fmt.Errorf("mock carrier rejected send to %s", phone)
	}

	return SendResult{ProviderMessageID: "mock-" + uuid.NewString()}, nil
}

func (m *MockTransport) roll() float64 {
	if m.rand == nil {
		m.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m.rand.Float64()
}
