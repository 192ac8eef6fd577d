package event

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout of one event frame:
//
//	[length u32 LE][crc32(payload) u32 LE][payload]
//
// where payload is the protowire encoding of the event:
//
//	field 1 (bytes, repeated): header entry {1: key, 2: value}
//	field 2 (bytes): body
//
// The same frame is spoken by the ingest server, the TCP forwarder and
// stored as the value encoding of the file channel.
const (
	fieldHeaders = 1
	fieldBody    = 2

	headerKey   = 1
	headerValue = 2

	// FrameHeaderSize is the fixed prefix before the payload.
	FrameHeaderSize = 8

	// MaxEventSize bounds a single encoded event payload.
	MaxEventSize = 1 << 20
)

var (
	ErrCorruptFrame  = errors.New("corrupt event frame")
	ErrFrameTooLarge = errors.New("event frame exceeds size limit")
)

// Marshal encodes the event payload (without the frame prefix).
func Marshal(ev Event) []byte {
	var b []byte
	for k, v := range ev.Headers {
		var entry []byte
		entry = protowire.AppendTag(entry, headerKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, headerValue, protowire.BytesType)
		entry = protowire.AppendString(entry, v)

		b = protowire.AppendTag(b, fieldHeaders, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendBytes(b, ev.Body)
	return b
}

// Unmarshal decodes an event payload produced by Marshal. Unknown
// fields are skipped.
func Unmarshal(data []byte) (Event, error) {
	var ev Event
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Event{}, fmt.Errorf("event tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldHeaders && typ == protowire.BytesType:
			entry, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Event{}, fmt.Errorf("event header: %w", protowire.ParseError(n))
			}
			data = data[n:]
			k, v, err := unmarshalHeader(entry)
			if err != nil {
				return Event{}, err
			}
			if ev.Headers == nil {
				ev.Headers = make(map[string]string)
			}
			ev.Headers[k] = v

		case num == fieldBody && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Event{}, fmt.Errorf("event body: %w", protowire.ParseError(n))
			}
			data = data[n:]
			ev.Body = append([]byte(nil), body...)

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Event{}, fmt.Errorf("event field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return ev, nil
}

func unmarshalHeader(entry []byte) (key, value string, err error) {
	for len(entry) > 0 {
		num, typ, n := protowire.ConsumeTag(entry)
		if n < 0 {
			return "", "", fmt.Errorf("header tag: %w", protowire.ParseError(n))
		}
		entry = entry[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, entry)
			if n < 0 {
				return "", "", fmt.Errorf("header field %d: %w", num, protowire.ParseError(n))
			}
			entry = entry[n:]
			continue
		}

		s, n := protowire.ConsumeString(entry)
		if n < 0 {
			return "", "", fmt.Errorf("header value: %w", protowire.ParseError(n))
		}
		entry = entry[n:]

		switch num {
		case headerKey:
			key = s
		case headerValue:
			value = s
		}
	}
	return key, value, nil
}

// AppendFrame appends the framed encoding of ev to dst.
func AppendFrame(dst []byte, ev Event) []byte {
	payload := Marshal(ev)
	var hdr [FrameHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[4:], crc32.ChecksumIEEE(payload))
	dst = append(dst, hdr[:]...)
	return append(dst, payload...)
}

// WriteFrame writes one framed event to w.
func WriteFrame(w io.Writer, ev Event) error {
	_, err := w.Write(AppendFrame(nil, ev))
	return err
}

// ReadFrame reads one framed event from r, verifying the checksum.
func ReadFrame(r io.Reader) (Event, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Event{}, err
	}

	length := binary.LittleEndian.Uint32(hdr[:4])
	if length == 0 || length > MaxEventSize {
		return Event{}, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Event{}, err
	}

	if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(hdr[4:]) {
		return Event{}, ErrCorruptFrame
	}
	return Unmarshal(payload)
}

// DecodeFrame decodes a framed event held fully in memory, as stored
// by the file channel.
func DecodeFrame(data []byte) (Event, error) {
	if len(data) < FrameHeaderSize {
		return Event{}, ErrCorruptFrame
	}
	length := binary.LittleEndian.Uint32(data[:4])
	payload := data[FrameHeaderSize:]
	if uint32(len(payload)) != length {
		return Event{}, ErrCorruptFrame
	}
	if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(data[4:8]) {
		return Event{}, ErrCorruptFrame
	}
	return Unmarshal(payload)
}
