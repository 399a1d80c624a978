package busmap

import (
	"encoding/binary"
	"testing"

	"github.com/skrewby/nmea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimFrame(source uint8, name nmea.DeviceName) nmea.RawFrame {
	frame := nmea.RawFrame{
		Header: nmea.CanBusHeader{
			PGN:         uint32(nmea.PGNISOAddressClaim),
			Priority:    6,
			Source:      source,
			Destination: nmea.AddressGlobal,
		},
		Length: 8,
	}
	binary.LittleEndian.PutUint64(frame.Data[:], name.Uint64())
	return frame
}

func TestBusMapObserveClaim(t *testing.T) {
	m := New(Config{})

	name := nmea.DeviceName{UniqueNumber: 7, ManufacturerCode: 273}
	assert.True(t, m.Observe(claimFrame(35, name)))

	node, ok := m.NodeBySource(35)
	require.True(t, ok)
	assert.Equal(t, uint8(35), node.Source)
	assert.Equal(t, name, node.Name)
	assert.Equal(t, name.Uint64(), node.NAME)
	assert.False(t, node.Claimed.IsZero())
}

func TestBusMapReannounceIsNotAChange(t *testing.T) {
	m := New(Config{})
	name := nmea.DeviceName{UniqueNumber: 7}

	assert.True(t, m.Observe(claimFrame(35, name)))
	assert.False(t, m.Observe(claimFrame(35, name)))
	assert.Len(t, m.Nodes(), 1)
}

func TestBusMapLowerNameTakesAddress(t *testing.T) {
	m := New(Config{})
	incumbent := nmea.DeviceName{UniqueNumber: 100}
	challenger := nmea.DeviceName{UniqueNumber: 7}

	require.True(t, m.Observe(claimFrame(35, incumbent)))
	assert.True(t, m.Observe(claimFrame(35, challenger)))

	node, ok := m.NodeBySource(35)
	require.True(t, ok)
	assert.Equal(t, challenger, node.Name)

	// the loser no longer holds an address but stays known
	nodes := m.Nodes()
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		if n.Name == incumbent {
			assert.Equal(t, nmea.AddressNull, n.Source)
		}
	}
}

func TestBusMapHigherNameDoesNotTakeAddress(t *testing.T) {
	m := New(Config{})
	incumbent := nmea.DeviceName{UniqueNumber: 7}
	challenger := nmea.DeviceName{UniqueNumber: 100}

	require.True(t, m.Observe(claimFrame(35, incumbent)))
	assert.False(t, m.Observe(claimFrame(35, challenger)))

	node, ok := m.NodeBySource(35)
	require.True(t, ok)
	assert.Equal(t, incumbent, node.Name)
}

func TestBusMapIgnoresOtherFrames(t *testing.T) {
	m := New(Config{})

	other := claimFrame(35, nmea.DeviceName{UniqueNumber: 7})
	other.Header.PGN = uint32(nmea.PGNCogSog)
	assert.False(t, m.Observe(other))

	// claims from the null and global addresses do not occupy a slot
	assert.False(t, m.Observe(claimFrame(nmea.AddressNull, nmea.DeviceName{UniqueNumber: 7})))
	assert.False(t, m.Observe(claimFrame(nmea.AddressGlobal, nmea.DeviceName{UniqueNumber: 7})))

	assert.Empty(t, m.Nodes())
	_, ok := m.NodeBySource(35)
	assert.False(t, ok)
}

func TestBusMapNodeMovesAddress(t *testing.T) {
	m := New(Config{})
	name := nmea.DeviceName{UniqueNumber: 7}

	require.True(t, m.Observe(claimFrame(35, name)))
	assert.True(t, m.Observe(claimFrame(36, name)))

	node, ok := m.NodeBySource(36)
	require.True(t, ok)
	assert.Equal(t, name, node.Name)
	assert.Len(t, m.Nodes(), 1)

	_, ok = m.NodeBySource(35)
	assert.False(t, ok)
}
