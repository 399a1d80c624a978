// Package serialcan adapts serial CAN gateways speaking the SLCAN (Lawicel)
// ASCII protocol to the nmea frame interface. The serial port itself is opened
// by the caller (for example with github.com/tarm/serial) and handed in as an
// io.ReadWriter.
package serialcan

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/skrewby/nmea"
)

const (
	// slcanDelimiter terminates every SLCAN command and response
	slcanDelimiter = '\r'
	// slcanTransmitExtended marks an extended (29 bit) data frame
	slcanTransmitExtended = 'T'

	canIDMask = uint32(1)<<29 - 1

	readBufferSize = 100
)

const hextable = "0123456789ABCDEF"

// Connection is an SLCAN framed CAN endpoint over a serial gateway.
type Connection struct {
	port    io.ReadWriter
	timeNow func() time.Time

	readBuffer []byte
	readIndex  int
}

// NewConnection wraps an already opened serial port.
func NewConnection(port io.ReadWriter) *Connection {
	return &Connection{
		port:       port,
		timeNow:    time.Now,
		readBuffer: make([]byte, readBufferSize),
	}
}

func (c *Connection) Close() error {
	if closer, ok := c.port.(io.Closer); ok {
		return closer.Close()
	}
	return errors.New("serial port does not implement Closer interface")
}

func toSLCANBytes(frame nmea.RawFrame) []byte {
	// example: `T18EEFF55801FF...FF\r`
	raw := make([]byte, 0, 1+8+1+16+1)
	raw = append(raw, slcanTransmitExtended)

	canID := frame.Header.Uint32()
	for shift := 28; shift >= 0; shift -= 4 {
		raw = append(raw, hextable[(canID>>uint(shift))&0xF])
	}
	raw = append(raw, '0'+frame.Length)
	for i := uint8(0); i < frame.Length; i++ {
		v := frame.Data[i]
		raw = append(raw, hextable[v>>4], hextable[v&0x0F])
	}
	return append(raw, slcanDelimiter)
}

// WriteFrame transmits the frame as an extended SLCAN data frame.
func (c *Connection) WriteFrame(frame nmea.RawFrame) error {
	_, err := c.port.Write(toSLCANBytes(frame))
	return err
}

// ReadFrame reads serial input until one complete extended data frame line is
// assembled. Gateway acknowledgements, standard (11 bit) frames, other lines
// not starting with 'T' and 'T' lines too short for the ID and DLC are
// skipped. An extended frame line with a bad ID, DLC or data is returned as an
// error.
func (c *Connection) ReadFrame() (nmea.RawFrame, error) {
	buf := make([]byte, 50)
	for {
		// serve a line already sitting in the buffer before reading more
		if endIndex := bytes.IndexByte(c.readBuffer[0:c.readIndex], slcanDelimiter); endIndex != -1 {
			line := make([]byte, endIndex)
			copy(line, c.readBuffer[0:endIndex])
			copy(c.readBuffer, c.readBuffer[endIndex+1:c.readIndex])
			c.readIndex -= endIndex + 1

			frame, skip, err := parseSLCAN(line, c.timeNow())
			if skip {
				continue
			}
			return frame, err
		}

		n, err := c.port.Read(buf)
		if err != nil {
			return nmea.RawFrame{}, err
		}
		if n == 0 { // serial read timeout
			continue
		}
		if c.readIndex+n > len(c.readBuffer) { // overlong garbage line, start over
			c.readIndex = 0
		}
		copy(c.readBuffer[c.readIndex:], buf[0:n])
		c.readIndex += n
	}
}

// parseSLCAN decodes one line. skip is true for lines that are valid serial
// traffic but not extended data frames.
func parseSLCAN(raw []byte, now time.Time) (nmea.RawFrame, bool, error) {
	// example: `T15FD08168010102E803FFFFFF\r`
	//           ^^       ^^
	//           ||       |16 hex data chars
	//           ||       DLC
	//           |8 hex ID
	//           type
	if len(raw) == 0 || raw[0] != slcanTransmitExtended {
		return nmea.RawFrame{}, true, errors.New("not an extended SLCAN data frame")
	}
	if len(raw) < 10 {
		return nmea.RawFrame{}, true, errors.New("SLCAN frame shorter than header")
	}

	idBytes := make([]byte, 4)
	if _, err := hex.Decode(idBytes, raw[1:9]); err != nil {
		return nmea.RawFrame{}, false, err
	}
	canID := uint32(idBytes[0])<<24 | uint32(idBytes[1])<<16 | uint32(idBytes[2])<<8 | uint32(idBytes[3])

	length := raw[9] - '0'
	if length > 8 {
		return nmea.RawFrame{}, false, errors.New("SLCAN frame has invalid length")
	}
	if len(raw) < 10+2*int(length) {
		return nmea.RawFrame{}, false, errors.New("SLCAN frame data is truncated")
	}

	frame := nmea.RawFrame{
		Time:   now,
		Header: nmea.ParseCANID(canID & canIDMask),
		Length: length,
	}
	if _, err := hex.Decode(frame.Data[:length], raw[10:10+2*length]); err != nil {
		return nmea.RawFrame{}, false, err
	}
	return frame, false, nil
}
