package nmea

import (
	"encoding/binary"
)

// CanBusHeader is decoded 29 bit extended CAN ID of a J1939/NMEA2000 frame.
type CanBusHeader struct {
	PGN         uint32 `json:"pgn"`
	Priority    uint8  `json:"priority"`
	Source      uint8  `json:"source"`
	Destination uint8  `json:"destination"`
}

// Uint32 packs the header back into a 29 bit CAN ID. For PDU1 (PDU format < 240)
// PGNs the destination address occupies bits 8-15, for PDU2 (broadcast) PGNs those
// bits already belong to the PGN itself.
func (h CanBusHeader) Uint32() uint32 {
	canID := uint32(h.Source) // bits 0-7
	pf := uint8(h.PGN >> 8)
	if pf < 240 {
		canID |= uint32(h.Destination) << 8 // bits 8-15
	}
	canID |= h.PGN << 8                   // bits 8-25
	canID |= uint32(h.Priority&0x7) << 26 // bits 26,27,28
	return canID
}

// ParseCANID parses can bus header fields from CANID (29 bits of 32 bit).
func ParseCANID(canID uint32) CanBusHeader {
	result := CanBusHeader{
		Priority: uint8((canID >> 26) & 0x7), // bits 26,27,28
		Source:   uint8(canID),               // bits 0-7
	}
	ps := uint8(canID >> 8)         // bits 8-15
	pduFormat := uint8(canID >> 16) // bits 16-23
	rAndDP := uint8(canID>>24) & 3  // bits 24,25
	pgn := uint32(rAndDP)<<16 + uint32(pduFormat)<<8
	if pduFormat < 240 { // PDU1, PS is destination address
		result.Destination = ps
		result.PGN = pgn
	} else { // PDU2, PS is group extension and belongs to PGN
		result.Destination = AddressGlobal
		result.PGN = pgn + uint32(ps)
	}
	return result
}

// field readers/writers over frame data area. NMEA2000 payload integers are
// little-endian regardless of host byte order.

func readUint16(data []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(data[offset : offset+2])
}

func readInt16(data []byte, offset int) int16 {
	return int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
}

func putUint16(data []byte, offset int, v uint16) {
	binary.LittleEndian.PutUint16(data[offset:offset+2], v)
}

func putInt16(data []byte, offset int, v int16) {
	binary.LittleEndian.PutUint16(data[offset:offset+2], uint16(v))
}
