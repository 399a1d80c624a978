package nmea

import (
	"errors"
	"fmt"
)

// Error messages are part of the public behavior of this library and are kept
// stable. Prefer errors.Is/errors.As over string comparison.
var (
	// ErrReadTimeout is returned by transports when no frame arrived within the read timeout
	ErrReadTimeout = errors.New("read timeout")
	// ErrWriteTimeout is returned by transports when a frame could not be written within the send timeout
	ErrWriteTimeout = errors.New("write timeout")
	// ErrIncompleteFrame is returned when transport read yielded less than a full CAN frame record
	ErrIncompleteFrame = errors.New("Incomplete CAN frame")

	// ErrNotClaimed is returned by Device.Send when no address claim has completed yet
	ErrNotClaimed = errors.New("Device has not claimed an address")
	// ErrClaimInProgress is returned when Device.Claim is called while a previous claim is still running
	ErrClaimInProgress = errors.New("Address claim already in progress")
	// ErrAddressConflict is returned when a lower NAME claimed our address and
	// this device is not arbitrary address capable
	ErrAddressConflict = errors.New("Address conflict. Device not arbitrary address capable")
	// ErrNoAvailableAddress is returned when every candidate address was contested
	ErrNoAvailableAddress = errors.New("No available addresses on the network")
)

// UnsupportedPGNError is returned by Parse for PGNs that are not in the message registry.
type UnsupportedPGNError struct {
	PGN uint32
}

func (e *UnsupportedPGNError) Error() string {
	return fmt.Sprintf("PGN %d not supported", e.PGN)
}

// ShortPayloadError is returned by Parse when data is shorter than the PGN declared length.
type ShortPayloadError struct {
	PGN      PGN
	Got      int
	Expected int
}

func (e *ShortPayloadError) Error() string {
	return fmt.Sprintf("PGN %d payload too short: got %d bytes, expected %d", e.PGN, e.Got, e.Expected)
}

// UnexpectedDataPacketError is returned when a TP data frame arrives from a
// source that has no announced transfer in flight.
type UnexpectedDataPacketError struct {
	Source uint8
}

func (e *UnexpectedDataPacketError) Error() string {
	return fmt.Sprintf("unexpected TP data packet from source %d", e.Source)
}

// OutOfOrderError is returned when a TP data frame sequence number does not
// match the next expected one. The transfer it belonged to is dropped.
type OutOfOrderError struct {
	Source   uint8
	Expected uint8
	Got      uint8
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("out of order TP data packet from source %d: expected seq %d, got %d", e.Source, e.Expected, e.Got)
}
