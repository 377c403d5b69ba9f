package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// canFrameSize is sizeof(struct can_frame).
const canFrameSize = 16

// pollInterval bounds how long a blocked read ignores ctx.
const pollInterval = 100 * time.Millisecond

// SocketCAN is a raw CAN socket bound to one interface.
type SocketCAN struct {
	fd     int
	iface  string
	closed atomic.Bool
}

// OpenSocketCAN binds a raw CAN socket to iface, e.g. "can0".
func OpenSocketCAN(iface string) (*SocketCAN, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("failed to look up interface %s: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to open CAN socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind CAN socket to %s: %w", iface, err)
	}

	tv := unix.NsecToTimeval(pollInterval.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}

	return &SocketCAN{fd: fd, iface: iface}, nil
}

func (s *SocketCAN) Receive(ctx context.Context) (Frame, error) {
	var buf [canFrameSize]byte
	for {
		if s.closed.Load() {
			return Frame{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		n, err := unix.Read(s.fd, buf[:])
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if s.closed.Load() {
				return Frame{}, ErrClosed
			}
			return Frame{}, fmt.Errorf("read %s: %w", s.iface, err)
		}
		if n != canFrameSize {
			continue
		}

		f, ok := unmarshalFrame(buf)
		if !ok {
			// error and remote frames carry no payload
			continue
		}
		return f, nil
	}
}

func (s *SocketCAN) Send(f Frame) error {
	if s.closed.Load() {
		return ErrClosed
	}
	buf := marshalFrame(f)
	if _, err := unix.Write(s.fd, buf[:]); err != nil {
		return fmt.Errorf("write %s: %w", s.iface, err)
	}
	return nil
}

func (s *SocketCAN) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return unix.Close(s.fd)
}

func marshalFrame(f Frame) [canFrameSize]byte {
	var buf [canFrameSize]byte

	id := f.ID & unix.CAN_SFF_MASK
	if f.Extended {
		id = f.ID&unix.CAN_EFF_MASK | unix.CAN_EFF_FLAG
	}
	binary.NativeEndian.PutUint32(buf[0:4], id)

	n := f.Len
	if n > MaxDataLen {
		n = MaxDataLen
	}
	buf[4] = n
	copy(buf[8:], f.Data[:n])
	return buf
}

func unmarshalFrame(buf [canFrameSize]byte) (Frame, bool) {
	raw := binary.NativeEndian.Uint32(buf[0:4])
	if raw&(unix.CAN_ERR_FLAG|unix.CAN_RTR_FLAG) != 0 {
		return Frame{}, false
	}

	f := Frame{Len: buf[4]}
	if raw&unix.CAN_EFF_FLAG != 0 {
		f.Extended = true
		f.ID = raw & unix.CAN_EFF_MASK
	} else {
		f.ID = raw & unix.CAN_SFF_MASK
	}
	n := f.Len
	if n > MaxDataLen {
		n = MaxDataLen
	}
	copy(f.Data[:], buf[8:8+int(n)])
	return f, true
}
