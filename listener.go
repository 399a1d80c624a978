package nmea

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ListenerConfig configures optional Listener collaborators. Zero value uses
// the real clock, no logging and no frame observer.
type ListenerConfig struct {
	Clock  clockwork.Clock
	Logger *zerolog.Logger
	// FrameObserver, when set, is called with every frame the listener reads
	// before the frame is decoded. Used for example to feed a busmap.BusMap.
	FrameObserver func(RawFrame)
}

// Listener is a passive NMEA2000 node. It owns its connection and closes it on
// Close. Read is blocking and not safe for concurrent use, callers multiplex
// externally (e.g. poll the socket for readability) before calling.
type Listener struct {
	conn      FrameReader
	assembler *TPAssembler
	observer  func(RawFrame)
}

// NewListener creates a listener over an already connected transport. The
// listener takes ownership of the connection.
func NewListener(conn FrameReader, config ListenerConfig) *Listener {
	return &Listener{
		conn: conn,
		assembler: NewTPAssembler(TPAssemblerConfig{
			Clock:  config.Clock,
			Logger: config.Logger,
		}),
		observer: config.FrameObserver,
	}
}

// Read blocks until a frame yields a complete message and returns it decoded.
// Transport protocol frames are fed to the reassembler and reading continues
// until a transfer completes; every other frame decodes directly. Decode and
// reassembly errors are returned per call and do not affect transfers from
// other sources.
func (l *Listener) Read() (Message, error) {
	for {
		frame, err := l.conn.ReadFrame()
		if err != nil {
			return nil, err
		}
		if l.observer != nil {
			l.observer(frame)
		}

		switch {
		case IsBAMAnnounce(frame):
			l.assembler.HandleBAM(frame)

		case IsDataTransfer(frame):
			pgn, payload, done, err := l.assembler.HandleDT(frame)
			if err != nil {
				return nil, err
			}
			if !done {
				continue
			}
			return parsePGN(pgn, payload)

		default:
			return Parse(frame.Header.Uint32(), frame.Data[:frame.Length])
		}
	}
}

// Close releases the connection.
func (l *Listener) Close() error {
	return l.conn.Close()
}
