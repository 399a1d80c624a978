package nmea

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	// tpControlBAM is the control byte announcing a broadcast multi-packet transfer
	tpControlBAM = 0x20
	// tpDataBytesPerFrame is payload bytes carried by a single TP data frame
	tpDataBytesPerFrame = 7
	// tpStaleAfter is how long a transfer may wait for its next data frame
	// before a new data frame is no longer considered part of it
	tpStaleAfter = 750 * time.Millisecond
)

// IsBAMAnnounce reports whether the frame announces a broadcast multi-packet transfer.
func IsBAMAnnounce(frame RawFrame) bool {
	return PGN(frame.Header.PGN) == PGNTPConnectionManagement && frame.Length > 0 && frame.Data[0] == tpControlBAM
}

// IsDataTransfer reports whether the frame is a TP data frame.
func IsDataTransfer(frame RawFrame) bool {
	return PGN(frame.Header.PGN) == PGNTPDataTransfer
}

// tpTransfer is a single in-flight broadcast transfer from one source address.
type tpTransfer struct {
	pgn          PGN
	totalSize    int
	totalPackets uint8
	// nextSeq is sequence number the next data frame must carry. Starts at 1,
	// never exceeds totalPackets+1.
	nextSeq   uint8
	buffer    []byte
	lastFrame time.Time
}

// TPAssemblerConfig configures optional TPAssembler collaborators. Zero value
// uses the real clock and no logging.
type TPAssemblerConfig struct {
	Clock  clockwork.Clock
	Logger *zerolog.Logger
}

// TPAssembler reassembles ISO transport protocol broadcast (BAM) transfers.
// Each source address has at most one transfer in flight, a new announcement
// replaces whatever came before it. Safe for concurrent use.
type TPAssembler struct {
	lock      sync.Mutex
	transfers map[uint8]*tpTransfer

	clock clockwork.Clock
	log   zerolog.Logger
}

// NewTPAssembler creates an assembler with no transfers in flight.
func NewTPAssembler(config TPAssemblerConfig) *TPAssembler {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
	return &TPAssembler{
		transfers: make(map[uint8]*tpTransfer),
		clock:     config.Clock,
		log:       *config.Logger,
	}
}

// HandleBAM installs a new transfer for the frame source, replacing any
// transfer already in flight from it.
func (a *TPAssembler) HandleBAM(frame RawFrame) {
	a.lock.Lock()
	defer a.lock.Unlock()

	d := frame.Data
	totalSize := int(d[1]) | int(d[2])<<8
	pgn := PGN(uint32(d[5]) | uint32(d[6])<<8 | uint32(d[7])<<16)

	source := frame.Header.Source
	if old, ok := a.transfers[source]; ok {
		a.log.Debug().
			Uint8("source", source).
			Uint32("pgn", uint32(old.pgn)).
			Msg("BAM announce replaces in-flight transfer")
	}
	a.transfers[source] = &tpTransfer{
		pgn:          pgn,
		totalSize:    totalSize,
		totalPackets: d[3],
		nextSeq:      1,
		buffer:       make([]byte, totalSize),
		lastFrame:    a.clock.Now(),
	}
}

// HandleDT feeds a TP data frame into the transfer of its source. When the
// frame completes the transfer, the announced PGN and reassembled payload are
// returned with done=true and the transfer is removed. A data frame without a
// matching transfer or with an unexpected sequence number returns an error,
// the latter also drops the transfer. Other sources' transfers are never
// affected.
func (a *TPAssembler) HandleDT(frame RawFrame) (pgn PGN, payload []byte, done bool, err error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	source := frame.Header.Source
	transfer, ok := a.transfers[source]
	if ok && a.clock.Now().Sub(transfer.lastFrame) > tpStaleAfter {
		a.log.Debug().
			Uint8("source", source).
			Uint32("pgn", uint32(transfer.pgn)).
			Msg("dropping stale transfer")
		delete(a.transfers, source)
		ok = false
	}
	if !ok {
		return 0, nil, false, &UnexpectedDataPacketError{Source: source}
	}

	seq := frame.Data[0]
	if seq != transfer.nextSeq {
		delete(a.transfers, source)
		return 0, nil, false, &OutOfOrderError{Source: source, Expected: transfer.nextSeq, Got: seq}
	}

	offset := int(seq-1) * tpDataBytesPerFrame
	if offset > transfer.totalSize { // announce promised more packets than the size needs
		offset = transfer.totalSize
	}
	end := offset + tpDataBytesPerFrame
	if end > transfer.totalSize { // final frame is padded with 0xFF past the announced size
		end = transfer.totalSize
	}
	copy(transfer.buffer[offset:end], frame.Data[1:])
	transfer.nextSeq++
	transfer.lastFrame = a.clock.Now()

	if seq != transfer.totalPackets {
		return 0, nil, false, nil
	}
	delete(a.transfers, source)
	return transfer.pgn, transfer.buffer, true, nil
}
