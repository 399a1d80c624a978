package nmea

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCANID(t *testing.T) {
	var testCases = []struct {
		name   string
		canID  uint32
		expect CanBusHeader
	}{
		{
			name:  "ok, PDU1 addressed, 0F001DA1",
			canID: 0x0F001DA1,
			expect: CanBusHeader{
				Priority:    3,
				PGN:         196608, // 0x30000
				Destination: 29,     // 1D
				Source:      161,    // A1
			},
		},
		{
			name:  "ok, PDU2 broadcast, 0FF01DB5",
			canID: 0x0FF01DB5,
			expect: CanBusHeader{
				Priority:    3,
				PGN:         0x3F000 + 0x1D, // PS byte belongs to the PGN
				Destination: AddressGlobal,
				Source:      181, // B5
			},
		},
		{
			name:  "ok, ISO address claim, 18EEFF42",
			canID: 0x18EEFF42,
			expect: CanBusHeader{
				Priority:    6,
				PGN:         uint32(PGNISOAddressClaim),
				Destination: AddressGlobal,
				Source:      0x42,
			},
		},
		{
			name:  "ok, COG & SOG rapid update, 09F80215",
			canID: 0x09F80215,
			expect: CanBusHeader{
				Priority:    2,
				PGN:         uint32(PGNCogSog),
				Destination: AddressGlobal,
				Source:      0x15,
			},
		},
		{
			name:  "ok, TP data transfer, 1CEBFF10",
			canID: 0x1CEBFF10,
			expect: CanBusHeader{
				Priority:    7,
				PGN:         uint32(PGNTPDataTransfer),
				Destination: AddressGlobal,
				Source:      0x10,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := ParseCANID(tc.canID)
			assert.Equal(t, tc.expect, header)
		})
	}
}

func TestCanBusHeader_Uint32(t *testing.T) {
	var testCases = []struct {
		name   string
		when   CanBusHeader
		expect uint32
	}{
		{
			name: "ok, address claim from null address to everyone",
			when: CanBusHeader{
				PGN:         uint32(PGNISOAddressClaim),
				Priority:    6,
				Source:      AddressNull,
				Destination: AddressGlobal,
			},
			expect: 0x18eefffe,
		},
		{
			name: "ok, PDU1 destination occupies bits 8-15",
			when: CanBusHeader{
				PGN:         59904, // 0xEA00, ISO Request
				Priority:    6,
				Source:      161, // A1
				Destination: 29,  // 1D
			},
			expect: 0x18ea1da1,
		},
		{
			name: "ok, PDU2 broadcast PGN carries its own low byte",
			when: CanBusHeader{
				PGN:         uint32(PGNCogSog), // 0x1F802
				Priority:    2,
				Source:      0x15,
				Destination: AddressGlobal,
			},
			expect: 0x09f80215,
		},
		{
			name: "ok, TP BAM announce",
			when: CanBusHeader{
				PGN:         uint32(PGNTPConnectionManagement),
				Priority:    7,
				Source:      0x10,
				Destination: AddressGlobal,
			},
			expect: 0x1cecff10,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.when.Uint32()
			assert.Equal(t, tc.expect, result)
		})
	}
}

func TestCanBusHeaderRoundTrip(t *testing.T) {
	headers := []CanBusHeader{
		{PGN: uint32(PGNISOAddressClaim), Priority: 6, Source: 42, Destination: AddressGlobal},
		{PGN: uint32(PGNVesselSpeedComponents), Priority: 3, Source: 1, Destination: AddressGlobal},
		{PGN: 59904, Priority: 6, Source: 254, Destination: 29},
	}
	for _, header := range headers {
		assert.Equal(t, header, ParseCANID(header.Uint32()))
	}
}

func TestFieldReadersWriters(t *testing.T) {
	data := make([]byte, 8)

	putUint16(data, 2, 0x1234)
	assert.Equal(t, []byte{0x34, 0x12}, data[2:4])
	assert.Equal(t, uint16(0x1234), readUint16(data, 2))

	putInt16(data, 4, -2)
	assert.Equal(t, []byte{0xFE, 0xFF}, data[4:6])
	assert.Equal(t, int16(-2), readInt16(data, 4))

	assert.Equal(t, int16(-1), readInt16([]byte{0xFF, 0xFF}, 0))
}
