package nmea

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceName_Uint64(t *testing.T) {
	var testCases = []struct {
		name   string
		when   DeviceName
		expect uint64
	}{
		{
			name:   "ok, zero NAME",
			when:   DeviceName{},
			expect: 0,
		},
		{
			name: "ok, every field placed at its offset",
			when: DeviceName{
				UniqueNumber:            42,
				ManufacturerCode:        273,
				DeviceInstanceLower:     1,
				DeviceInstanceUpper:     2,
				DeviceFunction:          150,
				DeviceClass:             75,
				SystemInstance:          3,
				IndustryGroup:           4,
				ArbitraryAddressCapable: true,
			},
			expect: 0xC39696112220002A,
		},
		{
			name: "ok, unique number overflow bits are masked off",
			when: DeviceName{
				UniqueNumber: 1 << 22, // 21 bit field, packs as (1<<22) mod (1<<21) = 0
			},
			expect: 0,
		},
		{
			name: "ok, manufacturer code overflow bits are masked off",
			when: DeviceName{
				ManufacturerCode: 0xFFFF,
			},
			expect: 0x7FF << 21,
		},
		{
			name: "ok, device class overflow bit does not leak into the reserved bit",
			when: DeviceName{
				DeviceClass: 0xFF,
			},
			expect: 0x7F << 49,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.when.Uint64())
		})
	}
}

func TestDeviceName_Bytes(t *testing.T) {
	name := DeviceName{
		UniqueNumber:            42,
		ManufacturerCode:        273,
		DeviceInstanceLower:     1,
		DeviceInstanceUpper:     2,
		DeviceFunction:          150,
		DeviceClass:             75,
		SystemInstance:          3,
		IndustryGroup:           4,
		ArbitraryAddressCapable: true,
	}
	// NAME goes out little-endian
	assert.Equal(t, []byte{0x2A, 0x00, 0x20, 0x22, 0x11, 0x96, 0x96, 0xC3}, name.Bytes())
}

func TestDeviceNameFromUint64(t *testing.T) {
	name := DeviceName{
		UniqueNumber:            0x1FFFFF,
		ManufacturerCode:        0x7FF,
		DeviceInstanceLower:     7,
		DeviceInstanceUpper:     31,
		DeviceFunction:          255,
		DeviceClass:             127,
		SystemInstance:          15,
		IndustryGroup:           7,
		ArbitraryAddressCapable: true,
	}
	assert.Equal(t, name, DeviceNameFromUint64(name.Uint64()))

	lowest := DeviceName{UniqueNumber: 1}
	assert.Equal(t, lowest, DeviceNameFromUint64(lowest.Uint64()))
}

func TestDeviceNameOrdering(t *testing.T) {
	// lower packed NAME wins address contention: the arbitrary capable bit is
	// the most significant, so a non-capable NAME always outranks a capable one
	capable := DeviceName{UniqueNumber: 1, ArbitraryAddressCapable: true}
	fixed := DeviceName{UniqueNumber: 0x1FFFFF}
	assert.Less(t, fixed.Uint64(), capable.Uint64())
}
