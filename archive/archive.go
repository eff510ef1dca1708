// Package archive writes and verifies store-only zip containers.
//
// Only the subset of the format needed to bundle rotated log files is
// produced: no compression, no ZIP64, no encryption, no data descriptors.
// Output opens with standard zip tools and with archive/zip.
package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Record signatures and fixed field values
const (
	sigLocalHeader   uint32 = 0x04034b50
	sigCentralHeader uint32 = 0x02014b50
	sigEndOfCentral  uint32 = 0x06054b50

	versionNeeded uint16 = 20     // 2.0, plain deflate-era reader
	versionMadeBy uint16 = 0x0314 // host 3 (unix), zip version 2.0
	flagUTF8      uint16 = 0x0800
	methodStore   uint16 = 0

	localHeaderLen   = 30
	centralHeaderLen = 46
	endOfCentralLen  = 22

	maxEntries = 0xFFFF
	maxUint32  = 0xFFFFFFFF
)

// Unix file type bits stored in the high half of external attributes
const (
	unixTypeRegular uint32 = 0o100000
	unixTypeDir     uint32 = 0o040000
)

var (
	// ErrEmptyArchive is returned when the source tree holds no entries
	ErrEmptyArchive = errors.New("archive: source directory has no entries")
	// ErrTooLarge is returned when the tree exceeds the non-ZIP64 limits
	ErrTooLarge = errors.New("archive: exceeds 65535 entries or 4 GiB offsets")
	// ErrInvalidArchive is returned by Verify for malformed containers
	ErrInvalidArchive = errors.New("archive: invalid container")
)

// Entry is one member of the container
type Entry struct {
	Name     string // slash separated, directories end in '/'
	CRC32    uint32
	Size     uint32
	Mode     fs.FileMode
	Modified time.Time
	DOSTime  uint16
	DOSDate  uint16
	Offset   uint32 // offset of the local header
	IsDir    bool
}

// Summary describes a written or verified container
type Summary struct {
	Path    string
	Entries []Entry
	Size    int64 // container size in bytes
}

// Files returns the number of regular file entries
func (s *Summary) Files() int {
	n := 0
	for i := range s.Entries {
		if !s.Entries[i].IsDir {
			n++
		}
	}
	return n
}

// Create bundles every file and directory below srcDir into a new container at dstPath.
// Traversal is lexical so the same tree always produces the same entry order.
// On any failure the partially written output is removed.
func Create(srcDir, dstPath string) (*Summary, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("archive: stat source '%s': %w", srcDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive: source '%s' is not a directory", srcDir)
	}

	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("archive: create '%s': %w", dstPath, err)
	}

	w := &writer{
		bw: bufio.NewWriterSize(out, 64*1024),
	}

	summary, werr := w.writeTree(srcDir)
	if werr == nil {
		werr = w.bw.Flush()
	}
	if cerr := out.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("archive: close '%s': %w", dstPath, cerr)
	}

	if werr == nil {
		var fi os.FileInfo
		fi, werr = os.Stat(dstPath)
		if werr == nil && fi.Size() < endOfCentralLen {
			werr = fmt.Errorf("archive: output '%s' truncated (%d bytes)", dstPath, fi.Size())
		}
		if werr == nil {
			summary.Size = fi.Size()
		}
	}

	if werr != nil {
		_ = os.Remove(dstPath)
		return nil, werr
	}

	summary.Path = dstPath
	return summary, nil
}

// writer tracks the output offset of a single Create call
type writer struct {
	bw      *bufio.Writer
	offset  uint64
	entries []Entry
	scratch []byte
}

// Write implements io.Writer, counting bytes for offset bookkeeping
func (w *writer) Write(p []byte) (int, error) {
	n, err := w.bw.Write(p)
	w.offset += uint64(n)
	return n, err
}

// writeTree emits local entries for the tree, then the central directory and end record
func (w *writer) writeTree(root string) (*Summary, error) {
	if err := w.walk(root, ""); err != nil {
		return nil, err
	}
	if len(w.entries) == 0 {
		return nil, ErrEmptyArchive
	}
	if len(w.entries) > maxEntries {
		return nil, ErrTooLarge
	}

	cdOffset := w.offset
	for i := range w.entries {
		if err := w.writeCentralHeader(&w.entries[i]); err != nil {
			return nil, err
		}
	}
	cdSize := w.offset - cdOffset
	if cdOffset > maxUint32 || cdSize > maxUint32 {
		return nil, ErrTooLarge
	}

	if err := w.writeEndOfCentral(uint16(len(w.entries)), uint32(cdSize), uint32(cdOffset)); err != nil {
		return nil, err
	}

	return &Summary{Entries: w.entries}, nil
}

// walk visits dir in the lexical order os.ReadDir returns; rel is dir's slash path inside the container
func (w *writer) walk(dir, rel string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("archive: read dir '%s': %w", dir, err)
	}

	for _, de := range entries {
		full := filepath.Join(dir, de.Name())
		name := de.Name()
		if rel != "" {
			name = rel + "/" + name
		}

		switch {
		case de.IsDir():
			info, err := de.Info()
			if err != nil {
				return fmt.Errorf("archive: stat '%s': %w", full, err)
			}
			if err := w.addDir(name+"/", info); err != nil {
				return err
			}
			if err := w.walk(full, name); err != nil {
				return err
			}

		case de.Type().IsRegular():
			if err := w.addFile(full, name); err != nil {
				return err
			}

		default:
			// Symlinks, sockets and devices are not archived
		}
	}
	return nil
}

// addDir writes a zero length directory entry
func (w *writer) addDir(name string, info os.FileInfo) error {
	if w.offset > maxUint32 {
		return ErrTooLarge
	}
	e := Entry{
		Name:     name,
		Mode:     info.Mode(),
		Modified: info.ModTime(),
		Offset:   uint32(w.offset),
		IsDir:    true,
	}
	e.DOSTime, e.DOSDate = DOSTime(e.Modified)

	if err := w.writeLocalHeader(&e); err != nil {
		return err
	}
	w.entries = append(w.entries, e)
	return nil
}

// addFile checksums the file, then writes its local header and raw bytes
func (w *writer) addFile(path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: open '%s': %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("archive: stat '%s': %w", path, err)
	}

	h := crc32.NewIEEE()
	size, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("archive: read '%s': %w", path, err)
	}
	if size > maxUint32 || w.offset > maxUint32 {
		return ErrTooLarge
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("archive: rewind '%s': %w", path, err)
	}

	e := Entry{
		Name:     name,
		CRC32:    h.Sum32(),
		Size:     uint32(size),
		Mode:     info.Mode(),
		Modified: info.ModTime(),
		Offset:   uint32(w.offset),
	}
	e.DOSTime, e.DOSDate = DOSTime(e.Modified)

	if err := w.writeLocalHeader(&e); err != nil {
		return err
	}

	n, err := io.CopyN(w, f, size)
	if err != nil {
		return fmt.Errorf("archive: copy '%s' (%d of %d bytes): %w", path, n, size, err)
	}

	w.entries = append(w.entries, e)
	return nil
}

func (w *writer) writeLocalHeader(e *Entry) error {
	b := w.scratch[:0]
	b = le32(b, sigLocalHeader)
	b = le16(b, versionNeeded)
	b = le16(b, flagUTF8)
	b = le16(b, methodStore)
	b = le16(b, e.DOSTime)
	b = le16(b, e.DOSDate)
	b = le32(b, e.CRC32)
	b = le32(b, e.Size) // compressed
	b = le32(b, e.Size) // uncompressed
	b = le16(b, uint16(len(e.Name)))
	b = le16(b, 0) // extra
	b = append(b, e.Name...)
	w.scratch = b

	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("archive: write local header '%s': %w", e.Name, err)
	}
	return nil
}

func (w *writer) writeCentralHeader(e *Entry) error {
	b := w.scratch[:0]
	b = le32(b, sigCentralHeader)
	b = le16(b, versionMadeBy)
	b = le16(b, versionNeeded)
	b = le16(b, flagUTF8)
	b = le16(b, methodStore)
	b = le16(b, e.DOSTime)
	b = le16(b, e.DOSDate)
	b = le32(b, e.CRC32)
	b = le32(b, e.Size)
	b = le32(b, e.Size)
	b = le16(b, uint16(len(e.Name)))
	b = le16(b, 0) // extra
	b = le16(b, 0) // comment
	b = le16(b, 0) // disk number start
	b = le16(b, 0) // internal attributes
	b = le32(b, unixMode(e.Mode, e.IsDir)<<16)
	b = le32(b, e.Offset)
	b = append(b, e.Name...)
	w.scratch = b

	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("archive: write central header '%s': %w", e.Name, err)
	}
	return nil
}

func (w *writer) writeEndOfCentral(count uint16, cdSize, cdOffset uint32) error {
	b := w.scratch[:0]
	b = le32(b, sigEndOfCentral)
	b = le16(b, 0) // this disk
	b = le16(b, 0) // disk with central directory
	b = le16(b, count)
	b = le16(b, count)
	b = le32(b, cdSize)
	b = le32(b, cdOffset)
	b = le16(b, 0) // comment length
	w.scratch = b

	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("archive: write end record: %w", err)
	}
	return nil
}

// DOSTime packs t, in local time, into MS-DOS time and date fields.
// Times before 1980 clamp to 1980-01-01 00:00:00.
func DOSTime(t time.Time) (dosTime, dosDate uint16) {
	t = t.Local()
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local)
	}
	dosTime = uint16(t.Second()/2 | t.Minute()<<5 | t.Hour()<<11)
	dosDate = uint16(t.Day() | int(t.Month())<<5 | (t.Year()-1980)<<9)
	return dosTime, dosDate
}

// CRC32 returns the IEEE checksum used by zip entries
func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// unixMode converts a FileMode to st_mode bits including the file type
func unixMode(m fs.FileMode, isDir bool) uint32 {
	perm := uint32(m.Perm())
	if isDir {
		return unixTypeDir | perm
	}
	return unixTypeRegular | perm
}

func le16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func le32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}
