package nmea

import (
	"encoding/binary"
)

// DeviceName is the 64 bit NAME identifying a node on the bus (J1939-81). It
// doubles as the arbitration key during address claiming: the lower the packed
// value, the higher the claim priority. Fields wider than their wire width are
// masked down during packing, the overflowing upper bits are ignored.
//
// Related info about SAE J1939 NAMEs: https://embeddedflakes.com/network-management-in-sae-j1939/
type DeviceName struct {
	UniqueNumber        uint32 // ISO Identity Number (21 bits)
	ManufacturerCode    uint16 // Device Manufacturer (11 bits)
	DeviceInstanceLower uint8  // J1939 ECU Instance (3 bits)
	DeviceInstanceUpper uint8  // J1939 Function Instance (5 bits)
	DeviceFunction      uint8  // (8 bits)
	// reserved (1 bit)
	DeviceClass    uint8 // (7 bits)
	SystemInstance uint8 // ISO Device Class Instance (4 bits)
	IndustryGroup  uint8 // (3 bits)

	// ArbitraryAddressCapable nodes are allowed to move to another address when
	// they lose an address contention. Nodes without this bit fail their claim
	// on the first lost contention.
	ArbitraryAddressCapable bool // (1 bit)
}

// Uint64 packs the NAME into its 64 bit form, fields LSB first.
func (n DeviceName) Uint64() uint64 {
	var v uint64
	v |= uint64(n.UniqueNumber) & 0x1FFFFF
	v |= (uint64(n.ManufacturerCode) & 0x7FF) << 21
	v |= (uint64(n.DeviceInstanceLower) & 0x07) << 32
	v |= (uint64(n.DeviceInstanceUpper) & 0x1F) << 35
	v |= uint64(n.DeviceFunction) << 40
	v |= (uint64(n.DeviceClass) & 0x7F) << 49 // bit 48 is reserved
	v |= (uint64(n.SystemInstance) & 0x0F) << 56
	v |= (uint64(n.IndustryGroup) & 0x07) << 60
	if n.ArbitraryAddressCapable {
		v |= 1 << 63
	}
	return v
}

// Bytes returns the NAME in wire order (little-endian), as carried by the
// ISO address claim frame data area.
func (n DeviceName) Bytes() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n.Uint64())
	return b
}

// DeviceNameFromUint64 unpacks a NAME observed on the wire.
func DeviceNameFromUint64(v uint64) DeviceName {
	return DeviceName{
		UniqueNumber:            uint32(v & 0x1FFFFF),
		ManufacturerCode:        uint16((v >> 21) & 0x7FF),
		DeviceInstanceLower:     uint8((v >> 32) & 0x07),
		DeviceInstanceUpper:     uint8((v >> 35) & 0x1F),
		DeviceFunction:          uint8(v >> 40),
		DeviceClass:             uint8((v >> 49) & 0x7F),
		SystemInstance:          uint8((v >> 56) & 0x0F),
		IndustryGroup:           uint8((v >> 60) & 0x07),
		ArbitraryAddressCapable: v>>63 == 1,
	}
}
