package injection

import "sync"

// MockInjector implements ports.PacketInjector for testing purposes.
// It captures injected packets in memory instead of sending them to a network interface.
type MockInjector struct {
	mu         sync.Mutex
	ReqPackets [][]byte
	Closed     bool

	// FailAfter makes every Inject after the first FailAfter packets return Err.
	// Zero disables failures.
	FailAfter int
	Err       error
}

// NewMockInjector creates a new instance of MockInjector.
func NewMockInjector() *MockInjector {
	return &MockInjector{ReqPackets: make([][]byte, 0)}
}

// Inject stores the packet in the ReqPackets slice.
func (m *MockInjector) Inject(packet []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAfter > 0 && len(m.ReqPackets) >= m.FailAfter {
		return m.Err
	}

	// Copy buffer to avoid reference issues if the caller reuses the buffer
	p := make([]byte, len(packet))
	copy(p, packet)

	m.ReqPackets = append(m.ReqPackets, p)
	return nil
}

// Close marks the injector as closed.
func (m *MockInjector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}

// IsClosed reports whether Close was called.
func (m *MockInjector) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

// GetPackets returns a copy of the captured packets.
func (m *MockInjector) GetPackets() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	packets := make([][]byte, len(m.ReqPackets))
	for i, p := range m.ReqPackets {
		packets[i] = make([]byte, len(p))
		copy(packets[i], p)
	}
	return packets
}
