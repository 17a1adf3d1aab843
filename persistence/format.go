package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	// MagicNumber identifies v1 checkpoint files (ASCII: "MCCK"). A legacy
	// file resuming at step 0x4D43434B starts with the same bytes; Decode
	// falls back to legacy for it.
	MagicNumber = 0x4D43434B
	// Version is the current file format version.
	Version = 1

	// HeaderSize is the size of the v1 file header in bytes.
	HeaderSize = 16
	// TrailerSize is the size of the v1 checksum trailer in bytes.
	TrailerSize = 8

	// DefaultFilename is the conventional checkpoint file name.
	DefaultFilename = "checkpoint.dat"
)

// Header flags.
const (
	// FlagChecksum marks a file that ends with a CRC32 trailer.
	FlagChecksum uint32 = 1 << 0
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number")
	ErrInvalidVersion  = errors.New("unsupported version")
	ErrTrailingData    = errors.New("trailing data after last section")
	ErrUnknownFormat   = errors.New("unknown checkpoint format")
	ErrInvalidPTFlag   = errors.New("invalid parallel tempering flag")
	ErrInvalidEncoding = errors.New("invalid checkpoint encoding")
)

// Format selects the on-disk framing.
type Format int

const (
	// FormatAuto lets the reader detect the framing. Writers treat it as FormatV1.
	FormatAuto Format = iota
	// FormatLegacy is the unframed section sequence.
	FormatLegacy
	// FormatV1 adds a header and a checksum trailer.
	FormatV1
)

// String returns the stable name of the format.
func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatV1:
		return "v1"
	default:
		return "auto"
	}
}

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return FormatAuto, nil
	case "legacy", "v0":
		return FormatLegacy, nil
	case "v1":
		return FormatV1, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

func (f Format) framed() bool { return f != FormatLegacy }

// FileHeader is the 16-byte header at the start of a v1 checkpoint.
type FileHeader struct {
	Magic    uint32 // 0x4D43434B ("MCCK")
	Version  uint32 // File format version
	Flags    uint32 // FlagChecksum
	Reserved uint32
}

func (h *FileHeader) marshal(order binary.ByteOrder) []byte {
	b := make([]byte, HeaderSize)
	order.PutUint32(b[0:], h.Magic)
	order.PutUint32(b[4:], h.Version)
	order.PutUint32(b[8:], h.Flags)
	order.PutUint32(b[12:], h.Reserved)
	return b
}

// detectHeader inspects the first bytes of data. It returns the byte order
// for which the magic number matches, or nil when data has no v1 header.
func detectHeader(data []byte) binary.ByteOrder {
	if len(data) < HeaderSize {
		return nil
	}
	switch {
	case binary.LittleEndian.Uint32(data) == MagicNumber:
		return binary.LittleEndian
	case binary.BigEndian.Uint32(data) == MagicNumber:
		return binary.BigEndian
	default:
		return nil
	}
}

// parseHeader reads and validates a v1 header.
func parseHeader(data []byte, order binary.ByteOrder) (FileHeader, error) {
	var h FileHeader
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: file shorter than header", ErrInvalidMagic)
	}
	h.Magic = order.Uint32(data[0:])
	h.Version = order.Uint32(data[4:])
	h.Flags = order.Uint32(data[8:])
	h.Reserved = order.Uint32(data[12:])
	if h.Magic != MagicNumber {
		return h, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	return h, nil
}
