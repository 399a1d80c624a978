// Package nmea implements a NMEA 2000 node on top of a CAN bus. It provides
// a passive Listener that reassembles and decodes bus traffic and an active
// Device that claims a source address with the J1939 dynamic address claim
// procedure and transmits messages, splitting payloads over ISO transport
// protocol (BAM) frames when they do not fit a single CAN frame.
package nmea

import (
	"time"
)

// PGN is J1939/NMEA2000 Parameter Group Number. 18 bits of the 29 bit CAN ID.
type PGN uint32

const (
	// PGNISOAddressClaim is sent by a node to claim a source address on the bus (J1939-81)
	PGNISOAddressClaim PGN = 60928 // 0xEE00
	// PGNTPConnectionManagement carries transport protocol control frames. Only the
	// BAM (Broadcast Announce Message) variant is handled by this library.
	PGNTPConnectionManagement PGN = 60416 // 0xEC00
	// PGNTPDataTransfer carries transport protocol data frames (1 byte sequence + 7 bytes payload)
	PGNTPDataTransfer PGN = 60160 // 0xEB00

	PGNAttitude              PGN = 127257
	PGNCogSog                PGN = 129026
	PGNTemperature           PGN = 130312
	PGNVesselSpeedComponents PGN = 130578
)

const (
	// AddressGlobal is broadcast destination address
	AddressGlobal uint8 = 255
	// AddressNull is source address used by nodes that have not (or could not) claim an address
	AddressNull uint8 = 254
)

// RawFrame is a single CAN frame read from or written to the bus.
type RawFrame struct {
	// Time is when the frame was read from the bus. Filled by the transport.
	Time   time.Time
	Header CanBusHeader
	Length uint8
	Data   [8]byte
}
