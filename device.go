package nmea

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DeviceConfig configures optional Device collaborators. Zero value uses the
// real clock and no logging.
type DeviceConfig struct {
	Clock  clockwork.Clock
	Logger *zerolog.Logger
}

// Device is an active NMEA2000 node. It owns its connection and closes it on
// Close. Send and Close must not be called concurrently with each other; the
// address claim runs on its own goroutine and is joined by Close.
type Device struct {
	conn FrameReadWriter

	lock     sync.Mutex
	address  *uint8
	claiming bool

	claimWG   sync.WaitGroup
	closeOnce sync.Once

	clock clockwork.Clock
	log   zerolog.Logger
}

// NewDevice creates a device over an already connected transport. The device
// takes ownership of the connection.
func NewDevice(conn FrameReadWriter, config DeviceConfig) *Device {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
	return &Device{
		conn:  conn,
		clock: config.Clock,
		log:   *config.Logger,
	}
}

// Address returns the claimed source address. ok is false until an address
// claim has completed successfully.
func (d *Device) Address() (address uint8, ok bool) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.address == nil {
		return 0, false
	}
	return *d.address, true
}

// Send transmits the message with its PGN default priority.
func (d *Device) Send(msg Message) error {
	return d.SendPriority(msg, DefaultPriority(msg))
}

// SendPriority transmits the message with the given priority (0 highest, 7
// lowest). Payloads up to 8 bytes go out as a single frame, longer payloads
// are split over a TP broadcast transfer. Returns ErrNotClaimed until an
// address claim has completed.
func (d *Device) SendPriority(msg Message, priority uint8) error {
	address, ok := d.Address()
	if !ok {
		return ErrNotClaimed
	}

	serialized := Serialize(msg)
	if len(serialized.Data) <= 8 {
		frame := RawFrame{
			Header: CanBusHeader{
				PGN:         uint32(serialized.PGN),
				Priority:    priority,
				Source:      address,
				Destination: AddressGlobal,
			},
			Length: uint8(len(serialized.Data)),
		}
		copy(frame.Data[:], serialized.Data)
		if err := d.conn.WriteFrame(frame); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		return nil
	}
	return d.sendTP(priority, address, serialized.PGN, serialized.Data)
}

// sendTP emits one BAM announce followed by ceil(len/7) data frames with
// sequence numbers 1..N. The final frame tail is padded with 0xFF.
func (d *Device) sendTP(priority uint8, source uint8, pgn PGN, data []byte) error {
	totalPackets := uint8((len(data) + tpDataBytesPerFrame - 1) / tpDataBytesPerFrame)

	bam := RawFrame{
		Header: CanBusHeader{
			PGN:         uint32(PGNTPConnectionManagement),
			Priority:    priority,
			Source:      source,
			Destination: AddressGlobal,
		},
		Length: 8,
		Data: [8]byte{
			tpControlBAM,
			uint8(len(data)), uint8(len(data) >> 8),
			totalPackets,
			0xFF,
			uint8(pgn), uint8(pgn >> 8), uint8(pgn >> 16),
		},
	}
	if err := d.conn.WriteFrame(bam); err != nil {
		return fmt.Errorf("failed to send TP BAM frame: %w", err)
	}

	for seq := uint8(1); seq <= totalPackets; seq++ {
		dt := RawFrame{
			Header: CanBusHeader{
				PGN:         uint32(PGNTPDataTransfer),
				Priority:    priority,
				Source:      source,
				Destination: AddressGlobal,
			},
			Length: 8,
		}
		dt.Data[0] = seq
		offset := int(seq-1) * tpDataBytesPerFrame
		for i := 0; i < tpDataBytesPerFrame; i++ {
			idx := offset + i
			if idx < len(data) {
				dt.Data[i+1] = data[idx]
			} else {
				dt.Data[i+1] = 0xFF
			}
		}
		if err := d.conn.WriteFrame(dt); err != nil {
			return fmt.Errorf("failed to send TP data frame: %w", err)
		}
	}
	return nil
}

// Close waits for an in-flight address claim to finish and then releases the
// connection. The connection is closed exactly once no matter how often Close
// is called.
func (d *Device) Close() error {
	d.claimWG.Wait()
	var err error
	d.closeOnce.Do(func() {
		err = d.conn.Close()
	})
	return err
}
