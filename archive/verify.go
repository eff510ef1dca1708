package archive

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
)

// Verify reads a container written by Create and checks that the end record,
// central directory and local headers agree, and that every stored payload
// matches its checksum.
func Verify(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: read '%s': %w", path, err)
	}
	if len(data) < endOfCentralLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than an end record", ErrInvalidArchive, len(data))
	}

	eocd := findEndOfCentral(data)
	if eocd < 0 {
		return nil, fmt.Errorf("%w: end of central directory not found", ErrInvalidArchive)
	}

	count := int(u16(data, eocd+10))
	cdSize := int(u32(data, eocd+12))
	cdOffset := int(u32(data, eocd+16))
	if u16(data, eocd+8) != uint16(count) {
		return nil, fmt.Errorf("%w: entry counts disagree", ErrInvalidArchive)
	}
	if cdOffset+cdSize != eocd {
		return nil, fmt.Errorf("%w: central directory bounds %d+%d do not reach end record at %d",
			ErrInvalidArchive, cdOffset, cdSize, eocd)
	}

	summary := &Summary{Path: path, Size: int64(len(data))}
	pos := cdOffset
	for i := 0; i < count; i++ {
		if pos+centralHeaderLen > eocd || u32(data, pos) != sigCentralHeader {
			return nil, fmt.Errorf("%w: bad central header %d at offset %d", ErrInvalidArchive, i, pos)
		}
		if u16(data, pos+10) != methodStore {
			return nil, fmt.Errorf("%w: entry %d is compressed", ErrInvalidArchive, i)
		}
		nameLen := int(u16(data, pos+28))
		extraLen := int(u16(data, pos+30))
		commentLen := int(u16(data, pos+32))
		attr := u32(data, pos+38)

		e := Entry{
			DOSTime: u16(data, pos+12),
			DOSDate: u16(data, pos+14),
			CRC32:   u32(data, pos+16),
			Size:    u32(data, pos+24),
			Offset:  u32(data, pos+42),
		}
		if pos+centralHeaderLen+nameLen > eocd {
			return nil, fmt.Errorf("%w: central name %d overruns directory", ErrInvalidArchive, i)
		}
		e.Name = string(data[pos+centralHeaderLen : pos+centralHeaderLen+nameLen])
		e.IsDir = attr>>16&unixTypeDir == unixTypeDir && e.Name != "" && e.Name[len(e.Name)-1] == '/'
		e.Mode = fs.FileMode(attr >> 16 & 0o777)
		if e.IsDir {
			e.Mode |= fs.ModeDir
		}

		if err := checkLocal(data, &e, cdOffset); err != nil {
			return nil, err
		}

		summary.Entries = append(summary.Entries, e)
		pos += centralHeaderLen + nameLen + extraLen + commentLen
	}
	if pos != eocd {
		return nil, fmt.Errorf("%w: %d trailing bytes in central directory", ErrInvalidArchive, eocd-pos)
	}

	return summary, nil
}

// checkLocal validates the local header and payload referenced by a central entry
func checkLocal(data []byte, e *Entry, limit int) error {
	off := int(e.Offset)
	if off+localHeaderLen > limit || u32(data, off) != sigLocalHeader {
		return fmt.Errorf("%w: bad local header for '%s' at %d", ErrInvalidArchive, e.Name, off)
	}
	nameLen := int(u16(data, off+26))
	extraLen := int(u16(data, off+28))
	if off+localHeaderLen+nameLen > limit {
		return fmt.Errorf("%w: local name for '%s' overruns data", ErrInvalidArchive, e.Name)
	}
	if name := string(data[off+localHeaderLen : off+localHeaderLen+nameLen]); name != e.Name {
		return fmt.Errorf("%w: local name '%s' differs from central name '%s'", ErrInvalidArchive, name, e.Name)
	}
	if u32(data, off+14) != e.CRC32 || u32(data, off+18) != e.Size || u32(data, off+22) != e.Size {
		return fmt.Errorf("%w: local header for '%s' disagrees with central directory", ErrInvalidArchive, e.Name)
	}

	start := off + localHeaderLen + nameLen + extraLen
	end := start + int(e.Size)
	if end > limit {
		return fmt.Errorf("%w: payload for '%s' overruns data", ErrInvalidArchive, e.Name)
	}
	if sum := CRC32(data[start:end]); sum != e.CRC32 {
		return fmt.Errorf("%w: checksum mismatch for '%s': stored %08x, computed %08x",
			ErrInvalidArchive, e.Name, e.CRC32, sum)
	}
	return nil
}

// findEndOfCentral scans backwards past an optional trailing comment
func findEndOfCentral(data []byte) int {
	lowest := len(data) - endOfCentralLen - 0xFFFF
	if lowest < 0 {
		lowest = 0
	}
	for i := len(data) - endOfCentralLen; i >= lowest; i-- {
		if u32(data, i) == sigEndOfCentral {
			return i
		}
	}
	return -1
}

func u16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off:])
}

func u32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}
