// Package test holds shared helpers for tests across this module.
package test

import (
	"sync"

	"github.com/skrewby/nmea"
)

// FrameReadResult is one scripted ReadFrame outcome.
type FrameReadResult struct {
	Frame nmea.RawFrame
	Err   error
}

// MockConnection is a scripted nmea.FrameReadWriter. Reads are served from the
// Reads script in order; once the script is exhausted every further read
// returns nmea.ErrReadTimeout, behaving like a bus that went quiet. Written
// frames are captured for inspection. Safe for concurrent use so the address
// claim goroutine can share it with the test.
type MockConnection struct {
	mutex sync.Mutex

	// ReadGate, when set, blocks every ReadFrame call until the channel is
	// closed. Lets tests hold a reader mid-flight.
	ReadGate chan struct{}

	Reads     []FrameReadResult
	readIndex int

	// WriteErrs are returned per WriteFrame call by index, nil entries and
	// calls past the end succeed
	WriteErrs  []error
	writeIndex int
	written    []nmea.RawFrame

	CloseErr   error
	closeCalls int
}

func (m *MockConnection) ReadFrame() (nmea.RawFrame, error) {
	if m.ReadGate != nil {
		<-m.ReadGate
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.readIndex >= len(m.Reads) {
		return nmea.RawFrame{}, nmea.ErrReadTimeout
	}
	r := m.Reads[m.readIndex]
	m.readIndex++
	return r.Frame, r.Err
}

func (m *MockConnection) WriteFrame(frame nmea.RawFrame) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var err error
	if m.writeIndex < len(m.WriteErrs) {
		err = m.WriteErrs[m.writeIndex]
	}
	m.writeIndex++
	if err != nil {
		return err
	}
	m.written = append(m.written, frame)
	return nil
}

func (m *MockConnection) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.closeCalls++
	return m.CloseErr
}

// Written returns a copy of every successfully written frame so far.
func (m *MockConnection) Written() []nmea.RawFrame {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	result := make([]nmea.RawFrame, len(m.written))
	copy(result, m.written)
	return result
}

// CloseCalls returns how many times Close was called.
func (m *MockConnection) CloseCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closeCalls
}
