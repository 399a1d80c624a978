// Package busmap passively tracks the other nodes present on a NMEA2000 bus
// by observing their ISO address claim frames.
package busmap

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/skrewby/nmea"
)

// Node is a device observed on the bus, identified by its NAME.
type Node struct {
	// Source is the address the node currently holds. nmea.AddressNull when the
	// node lost its address to a higher priority claim.
	Source uint8

	NAME uint64
	Name nmea.DeviceName

	// Claimed is when the node was last seen winning its address
	Claimed time.Time
}

// Config configures optional BusMap collaborators. Zero value uses the real clock.
type Config struct {
	Clock clockwork.Clock
}

// BusMap maps source addresses to the nodes holding them. Feed it every frame
// read from the bus, for example through nmea.ListenerConfig.FrameObserver.
// Safe for concurrent use.
type BusMap struct {
	mutex sync.Mutex
	clock clockwork.Clock

	knownNodes map[uint64]*Node
	bySource   [256]*Node
}

func New(config Config) *BusMap {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	return &BusMap{
		clock:      config.Clock,
		knownNodes: make(map[uint64]*Node),
	}
}

// Observe feeds a frame into the map. Frames other than ISO address claims are
// ignored. Returns true when the bus layout changed, that is when an address
// was taken by a node that did not hold it before.
func (m *BusMap) Observe(frame nmea.RawFrame) bool {
	if nmea.PGN(frame.Header.PGN) != nmea.PGNISOAddressClaim || frame.Length < 8 {
		return false
	}
	source := frame.Header.Source
	if source >= nmea.AddressNull { // 254 and 255 do not represent a claimable slot
		return false
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	NAME := binary.LittleEndian.Uint64(frame.Data[:])
	node, ok := m.knownNodes[NAME]
	if !ok {
		node = &Node{
			Source: source,
			NAME:   NAME,
			Name:   nmea.DeviceNameFromUint64(NAME),
		}
		m.knownNodes[NAME] = node
	}

	current := m.bySource[source]
	switch {
	case current == nil:
		// either the bus was already settled when we started listening or this
		// is a fresh claim. Assume the claimer owns the address.
	case current.NAME == NAME:
		return false // node re-announcing its own address
	case NAME < current.NAME:
		// by J1939 contention rules the lower NAME takes the address over
		current.Source = nmea.AddressNull
	default:
		// current holder outranks the claimer, slot does not change hands.
		// The claimer will have to move elsewhere, until it claims again it
		// holds no address.
		node.Source = nmea.AddressNull
		return false
	}

	if node.Source != source && node.Source < nmea.AddressNull && m.bySource[node.Source] == node {
		m.bySource[node.Source] = nil // node moved away from its previous address
	}
	node.Source = source
	node.Claimed = m.clock.Now()
	m.bySource[source] = node
	return true
}

// Nodes returns every node ever observed on the bus, including ones that have
// since lost their address.
func (m *BusMap) Nodes() []Node {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	result := make([]Node, 0, len(m.knownNodes))
	for _, node := range m.knownNodes {
		result = append(result, *node)
	}
	return result
}

// NodeBySource returns the node currently holding the given source address.
func (m *BusMap) NodeBySource(source uint8) (Node, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if int(source) >= len(m.bySource) || m.bySource[source] == nil {
		return Node{}, false
	}
	return *m.bySource[source], true
}
