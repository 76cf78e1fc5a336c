package encoding

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// HeaderSize is the length prefix in front of every frame: a big-endian uint32.
const HeaderSize = 4

// DefaultMaxFrameSize bounds a single frame.
const DefaultMaxFrameSize = 4 << 20

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrEmptyFrame    = errors.New("frame is empty")
)

// WriteFrame writes payload with its length prefix in a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return errors.Wrapf(ErrFrameTooLarge, "%d bytes", len(payload))
	}
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	if _, err := w.Write(frame); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. A clean end of stream before the
// header returns io.EOF unwrapped.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read frame header")
	}
	n := binary.BigEndian.Uint32(header[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if maxSize > 0 && uint64(n) > uint64(maxSize) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d > %d bytes", n, maxSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "read frame payload")
	}
	return payload, nil
}

// Write serializes v and writes it as one frame.
func Write(w io.Writer, v Serializable) error {
	payload, err := v.Serialize()
	if err != nil {
		return errors.Wrap(err, "serialize")
	}
	return WriteFrame(w, payload)
}

// Read reads one frame into v.
func Read(r io.Reader, maxSize int, v Serializable) error {
	payload, err := ReadFrame(r, maxSize)
	if err != nil {
		return err
	}
	if err = v.Deserialize(payload); err != nil {
		return errors.Wrap(err, "deserialize")
	}
	return nil
}
