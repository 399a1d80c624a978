package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/skrewby/nmea"
	"golang.org/x/sys/unix"
)

const (
	canRaw = 1

	// canFrameSize is size of the kernel can_frame record: 4 bytes ID, 1 byte
	// DLC, 3 bytes padding, 8 bytes data
	canFrameSize = 16

	// canIDMask keeps bits 0-28 belonging to the CAN ID itself
	canIDMask = uint32(1)<<29 - 1
	// canIDERRFlag is bit 29 in CAN ID and means ERR error message flag (0 = data frame, 1 = error message)
	canIDERRFlag = uint32(1 << 29)
	// canIDRTRFlag is bit 30 in CAN ID and means RTR remote transmission request (1 = rtr frame)
	canIDRTRFlag = uint32(1 << 30)
	// canIDEFFFlag is bit 31 in CAN ID and means EFF extended frame format / IDE identifier extension flag (0 = standard 11 bit, 1 = extended 29 bit)
	canIDEFFFlag = uint32(1 << 31)
)

var (
	ErrSocketOpen        = errors.New("Error while opening socket")
	ErrInterfaceNotFound = errors.New("Network interface not found")
	ErrSocketBind        = errors.New("Error while binding socket")
)

// Connection is a raw SocketCAN endpoint bound to a single network interface.
// It is exclusively owned by the Device or Listener built on top of it.
type Connection struct {
	socketFD int
	timeNow  func() time.Time
}

// Connect opens a raw CAN socket and binds it to the named network interface
// (for example "can0").
func Connect(ifName string) (*Connection, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocketOpen, err)
	}

	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %v", ErrInterfaceNotFound, err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err = unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %v", ErrSocketBind, err)
	}

	return &Connection{
		socketFD: fd,
		timeNow:  time.Now,
	}, nil
}

func isContinuableSocketErr(err error) bool {
	// EWOULDBLOCK - with SO_RCVTIMEO or SO_SNDTIMEO set, a receive or send
	// returns EWOULDBLOCK when the timeout elapses while no input data becomes
	// available or the output buffer remains full

	// EINTR - a signal during a blocking operation either returns partial
	// completion or fails with errno EINTR
	return err == syscall.EWOULDBLOCK || err == syscall.EINTR
}

func (c *Connection) SetReadTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_RCVTIMEO, timeout)
}

func (c *Connection) SetSendTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_SNDTIMEO, timeout)
}

func (c *Connection) setSocketTimeout(opt int, timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(c.socketFD, unix.SOL_SOCKET, opt, &tv)
}

func (c *Connection) Close() error {
	return unix.Close(c.socketFD)
}

// marshalFrame lays the frame out as a 16 byte can_frame record with the
// extended frame format flag set.
// can_frame structure: https://github.com/linux-can/can-utils/blob/affdc1b79973c7497bb8607603c24734e11a91aa/include/linux/can.h#L107
func marshalFrame(frame nmea.RawFrame) []byte {
	canFrame := make([]byte, canFrameSize)

	canID := frame.Header.Uint32() | canIDEFFFlag
	binary.LittleEndian.PutUint32(canFrame[0:4], canID)
	canFrame[4] = frame.Length
	copy(canFrame[8:], frame.Data[:frame.Length])
	return canFrame
}

func unmarshalFrame(canFrame []byte, now time.Time) (nmea.RawFrame, error) {
	if len(canFrame) < canFrameSize {
		return nmea.RawFrame{}, nmea.ErrIncompleteFrame
	}

	canID := binary.LittleEndian.Uint32(canFrame[0:4])
	if canID&canIDRTRFlag != 0 {
		return nmea.RawFrame{}, errors.New("read CAN remote transmission request frame")
	} else if canID&canIDERRFlag != 0 {
		return nmea.RawFrame{}, errors.New("read CAN error message frame")
	}

	frame := nmea.RawFrame{
		Time:   now,
		Header: nmea.ParseCANID(canID & canIDMask),
		Length: canFrame[4],
	}
	copy(frame.Data[:], canFrame[8:8+frame.Length])
	return frame, nil
}

// WriteFrame writes the frame as a single can_frame record.
func (c *Connection) WriteFrame(frame nmea.RawFrame) error {
	_, err := unix.Write(c.socketFD, marshalFrame(frame))
	if err != nil {
		if isContinuableSocketErr(err) {
			return nmea.ErrWriteTimeout
		}
		return err
	}
	return nil
}

// ReadFrame reads a single can_frame record. RTR and error frames are
// rejected, a read shorter than a full record yields ErrIncompleteFrame.
func (c *Connection) ReadFrame() (nmea.RawFrame, error) {
	canFrame := make([]byte, canFrameSize)
	n, err := unix.Read(c.socketFD, canFrame)
	if err != nil {
		if isContinuableSocketErr(err) {
			return nmea.RawFrame{}, nmea.ErrReadTimeout
		}
		return nmea.RawFrame{}, err
	}
	return unmarshalFrame(canFrame[0:n], c.timeNow())
}
