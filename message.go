package nmea

import (
	"fmt"
	"math"
)

// Message is a single decoded NMEA2000 message. The set of implementations is
// closed: every PGN this library understands has exactly one struct type here
// and an entry in the registry below.
type Message interface {
	// PGN this message is carried as on the bus
	PGN() PGN
	// DefaultPriority used when the message is sent without an explicit priority
	DefaultPriority() uint8

	// encode writes wire representation into a buffer pre-sized to the PGN
	// declared length. Unexported to keep the message set closed.
	encode(data []byte)
}

// SerializedMessage is wire form of a Message, ready to be framed.
type SerializedMessage struct {
	PGN  PGN
	Data []byte
}

type pgnEntry struct {
	length int
	parse  func(data []byte) Message
}

// registry maps every supported PGN to its payload length and parser. Closed
// at compile time, parsers may assume `length` bytes of input.
var registry = map[PGN]pgnEntry{
	PGNAttitude:              {length: 8, parse: parseAttitude},
	PGNCogSog:                {length: 8, parse: parseCogSog},
	PGNTemperature:           {length: 8, parse: parseTemperature},
	PGNVesselSpeedComponents: {length: 12, parse: parseVesselSpeedComponents},
}

// Parse decodes a message from its raw CAN ID and payload. Payload may be
// longer than the PGN declared length (trailing bytes are ignored) but not
// shorter.
func Parse(canID uint32, data []byte) (Message, error) {
	return parsePGN(PGN((canID>>8)&0x3FFFF), data)
}

func parsePGN(pgn PGN, data []byte) (Message, error) {
	entry, ok := registry[pgn]
	if !ok {
		return nil, &UnsupportedPGNError{PGN: uint32(pgn)}
	}
	if len(data) < entry.length {
		return nil, &ShortPayloadError{PGN: pgn, Got: len(data), Expected: entry.length}
	}
	return entry.parse(data), nil
}

// Serialize encodes the message to its wire form. The returned buffer always
// has the PGN declared length, fields not present in the struct are zero.
func Serialize(msg Message) SerializedMessage {
	pgn := msg.PGN()
	data := make([]byte, registry[pgn].length)
	msg.encode(data)
	return SerializedMessage{PGN: pgn, Data: data}
}

// DefaultPriority returns the transmit priority used for the message when none
// is given explicitly. 0 is the highest priority, 7 the lowest.
func DefaultPriority(msg Message) uint8 {
	return msg.DefaultPriority()
}

// scaled values are encoded by rounding half away from zero and truncating to
// the wire integer width (two's-complement wrap). Decoding multiplies the wire
// integer by the scale exactly, so every value on the wire grid round-trips.

func scaledUint16(v float64, scale float64) uint16 {
	return uint16(int64(math.Round(v / scale)))
}

func scaledInt16(v float64, scale float64) int16 {
	return int16(int64(math.Round(v / scale)))
}

// CogSog is PGN 129026 - COG & SOG, Rapid Update
type CogSog struct {
	SID          uint8
	COGReference uint8   // 0 = true, 1 = magnetic
	COG          float64 // course over ground (radians)
	SOG          float64 // speed over ground (m/s)
}

func (CogSog) PGN() PGN               { return PGNCogSog }
func (CogSog) DefaultPriority() uint8 { return 2 }

func parseCogSog(data []byte) Message {
	return CogSog{
		SID:          data[0],
		COGReference: data[1] & 0x03,
		COG:          float64(readUint16(data, 2)) * 0.0001,
		SOG:          float64(readUint16(data, 4)) * 0.01,
	}
}

func (m CogSog) encode(data []byte) {
	data[0] = m.SID
	data[1] = m.COGReference & 0x03
	putUint16(data, 2, scaledUint16(m.COG, 0.0001))
	putUint16(data, 4, scaledUint16(m.SOG, 0.01))
}

func (m CogSog) String() string {
	return fmt.Sprintf("COGSOG(SID=%d, Reference=%d, COG=%v radians, SOG=%v m/s)", m.SID, m.COGReference, m.COG, m.SOG)
}

// Temperature is PGN 130312 - Temperature
type Temperature struct {
	SID               uint8
	Instance          uint8
	Source            uint8
	ActualTemperature float64 // K
	SetTemperature    float64 // K
}

func (Temperature) PGN() PGN               { return PGNTemperature }
func (Temperature) DefaultPriority() uint8 { return 5 }

func parseTemperature(data []byte) Message {
	return Temperature{
		SID:               data[0],
		Instance:          data[1],
		Source:            data[2],
		ActualTemperature: float64(readUint16(data, 3)) * 0.01,
		SetTemperature:    float64(readUint16(data, 5)) * 0.01,
	}
}

func (m Temperature) encode(data []byte) {
	data[0] = m.SID
	data[1] = m.Instance
	data[2] = m.Source
	putUint16(data, 3, scaledUint16(m.ActualTemperature, 0.01))
	putUint16(data, 5, scaledUint16(m.SetTemperature, 0.01))
}

func (m Temperature) String() string {
	return fmt.Sprintf("Temperature(SID=%d, Instance=%d, Source=%d, Actual Temperature=%v K, Set Temperature=%v K)",
		m.SID, m.Instance, m.Source, m.ActualTemperature, m.SetTemperature)
}

// Attitude is PGN 127257 - Attitude
type Attitude struct {
	SID   uint8
	Yaw   float64 // radians
	Pitch float64 // radians
	Roll  float64 // radians
}

func (Attitude) PGN() PGN               { return PGNAttitude }
func (Attitude) DefaultPriority() uint8 { return 3 }

func parseAttitude(data []byte) Message {
	return Attitude{
		SID:   data[0],
		Yaw:   float64(readInt16(data, 1)) * 0.0001,
		Pitch: float64(readInt16(data, 3)) * 0.0001,
		Roll:  float64(readInt16(data, 5)) * 0.0001,
	}
}

func (m Attitude) encode(data []byte) {
	data[0] = m.SID
	putInt16(data, 1, scaledInt16(m.Yaw, 0.0001))
	putInt16(data, 3, scaledInt16(m.Pitch, 0.0001))
	putInt16(data, 5, scaledInt16(m.Roll, 0.0001))
}

func (m Attitude) String() string {
	return fmt.Sprintf("Attitude(SID=%d, Yaw=%v radians, Pitch=%v radians, Roll=%v radians)", m.SID, m.Yaw, m.Pitch, m.Roll)
}

// SpeedComponent is one axis of PGN 130578, split into speed relative to water
// and speed relative to ground.
type SpeedComponent struct {
	Water  float64 // m/s
	Ground float64 // m/s
}

// VesselSpeedComponents is PGN 130578 - Vessel Speed Components. 12 byte
// payload, always carried over transport protocol.
type VesselSpeedComponents struct {
	Longitudinal SpeedComponent
	Transverse   SpeedComponent
	Stern        SpeedComponent
}

func (VesselSpeedComponents) PGN() PGN               { return PGNVesselSpeedComponents }
func (VesselSpeedComponents) DefaultPriority() uint8 { return 3 }

func parseVesselSpeedComponents(data []byte) Message {
	return VesselSpeedComponents{
		Longitudinal: SpeedComponent{
			Water:  float64(readInt16(data, 0)) * 0.001,
			Ground: float64(readInt16(data, 2)) * 0.001,
		},
		Transverse: SpeedComponent{
			Water:  float64(readInt16(data, 4)) * 0.001,
			Ground: float64(readInt16(data, 6)) * 0.001,
		},
		Stern: SpeedComponent{
			Water:  float64(readInt16(data, 8)) * 0.001,
			Ground: float64(readInt16(data, 10)) * 0.001,
		},
	}
}

func (m VesselSpeedComponents) encode(data []byte) {
	putInt16(data, 0, scaledInt16(m.Longitudinal.Water, 0.001))
	putInt16(data, 2, scaledInt16(m.Longitudinal.Ground, 0.001))
	putInt16(data, 4, scaledInt16(m.Transverse.Water, 0.001))
	putInt16(data, 6, scaledInt16(m.Transverse.Ground, 0.001))
	putInt16(data, 8, scaledInt16(m.Stern.Water, 0.001))
	putInt16(data, 10, scaledInt16(m.Stern.Ground, 0.001))
}

func (m VesselSpeedComponents) String() string {
	return fmt.Sprintf("VesselSpeedComponents(Longitudinal(Water=%v m/s, Ground=%v m/s), Transverse(Water=%v m/s, Ground=%v m/s), Stern(Water=%v m/s, Ground=%v m/s))",
		m.Longitudinal.Water, m.Longitudinal.Ground, m.Transverse.Water, m.Transverse.Ground, m.Stern.Water, m.Stern.Ground)
}
