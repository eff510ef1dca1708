package slogger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lixenwraith/slogger/archive"
	"github.com/lixenwraith/slogger/formatter"
)

// FileOptions configures a FileSink
type FileOptions struct {
	Path       string
	MaxSize    int64 // rotate once the file reaches this many bytes
	MaxBackups int   // numbered backups kept as <path>.1 .. <path>.<MaxBackups>
	Archive    bool  // move evicted backups to <path>_archive/ and zip them in batches

	Formatter *formatter.Formatter

	// Optional hooks, called on the dispatcher goroutine
	Warn      func(format string, args ...any)
	OnRotate  func()
	OnArchive func(zipPath string, entries int)
}

// FileSink appends lines to a file and rotates it by size
type FileSink struct {
	opts       FileOptions
	file       *os.File
	size       int64
	archiveDir string
	disabled   bool
}

// NewFileSink opens (or creates) the log file in append mode, creating its directory if needed
func NewFileSink(opts FileOptions) (*FileSink, error) {
	if opts.Path == "" {
		return nil, fmtErrorf("file sink requires a path")
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxFileSize
	}
	if opts.MaxBackups < 1 {
		opts.MaxBackups = DefaultMaxBackups
	}
	if opts.Formatter == nil {
		opts.Formatter = formatter.New()
	}
	if opts.Warn == nil {
		opts.Warn = func(string, ...any) {}
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmtErrorf("failed to create log directory for '%s': %w", opts.Path, err)
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmtErrorf("failed to open log file '%s': %w", opts.Path, err)
	}

	s := &FileSink{
		opts:       opts,
		file:       f,
		archiveDir: opts.Path + "_archive",
	}
	if fi, err := f.Stat(); err == nil {
		s.size = fi.Size()
	}
	return s, nil
}

// Name implements Sink
func (s *FileSink) Name() string { return sinkFile }

// Path returns the active log file path
func (s *FileSink) Path() string { return s.opts.Path }

// ArchiveDir returns the staging directory for evicted backups
func (s *FileSink) ArchiveDir() string { return s.archiveDir }

// Disabled reports whether a failed reopen took the sink out of service
func (s *FileSink) Disabled() bool { return s.disabled }

// Forward appends one line and rotates once the size limit is reached
func (s *FileSink) Forward(rec *Record) error {
	if s.disabled {
		return nil
	}

	line := s.opts.Formatter.Format(rec.Time, rec.Level.String(), rec.TID, rec.Text())
	n, err := s.file.Write(line)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to '%s': %w", s.opts.Path, err)
	}

	if s.size >= s.opts.MaxSize {
		return s.Rotate()
	}
	return nil
}

// Rotate shifts numbered backups up by one, moves the live file to <path>.1
// and starts a fresh file. With archiving, the backup about to be evicted is
// moved into the archive directory first.
func (s *FileSink) Rotate() error {
	if s.disabled {
		return nil
	}

	if err := s.file.Close(); err != nil {
		s.opts.Warn("warning - failed to close '%s' before rotation: %v\n", s.opts.Path, err)
	}
	s.file = nil

	if s.opts.Archive {
		s.evictOldest()
	}

	for i := s.opts.MaxBackups; i >= 2; i-- {
		s.renameBackup(s.backupName(i-1), s.backupName(i))
	}
	s.renameBackup(s.opts.Path, s.backupName(1))

	f, err := os.OpenFile(s.opts.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		s.disabled = true
		return fmt.Errorf("failed to reopen '%s' after rotation, file output disabled: %w", s.opts.Path, err)
	}
	s.file = f
	s.size = 0

	if s.opts.OnRotate != nil {
		s.opts.OnRotate()
	}
	return nil
}

// renameBackup moves src to dst; a missing src is not an error
func (s *FileSink) renameBackup(src, dst string) {
	if err := os.Rename(src, dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.opts.Warn("warning - failed to rename '%s' to '%s': %v\n", src, dst, err)
	}
}

func (s *FileSink) backupName(i int) string {
	return s.opts.Path + "." + strconv.Itoa(i)
}

// evictOldest moves <path>.<MaxBackups> into the archive directory and
// zips the directory once it holds MaxBackups files
func (s *FileSink) evictOldest() {
	oldest := s.backupName(s.opts.MaxBackups)
	if _, err := os.Stat(oldest); err != nil {
		return
	}

	if err := os.MkdirAll(s.archiveDir, 0755); err != nil {
		s.opts.Warn("warning - failed to create archive directory '%s': %v\n", s.archiveDir, err)
		return
	}

	dst := s.stagingName(time.Now())
	if err := os.Rename(oldest, dst); err != nil {
		s.opts.Warn("warning - failed to move '%s' to archive directory: %v\n", oldest, err)
		return
	}

	count, err := countRegularFiles(s.archiveDir)
	if err != nil {
		s.opts.Warn("warning - failed to read archive directory '%s': %v\n", s.archiveDir, err)
		return
	}
	if count >= s.opts.MaxBackups {
		if err := s.archive(); err != nil {
			s.opts.Warn("warning - archiving '%s' failed: %v\n", s.archiveDir, err)
		}
	}
}

// stagingName returns an unused file name in the archive directory
func (s *FileSink) stagingName(now time.Time) string {
	base := filepath.Join(s.archiveDir, filepath.Base(s.opts.Path)+"."+now.Format("20060102_150405.000000"))
	name := base
	for i := 1; fileExists(name); i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	return name
}

// archive zips the archive directory next to the log file and empties it
func (s *FileSink) archive() error {
	zipPath := s.archiveName(time.Now())
	summary, err := archive.Create(s.archiveDir, zipPath)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(s.archiveDir)
	if err != nil {
		return fmt.Errorf("failed to list '%s' after archiving: %w", s.archiveDir, err)
	}
	for _, e := range entries {
		if rerr := os.RemoveAll(filepath.Join(s.archiveDir, e.Name())); rerr != nil {
			err = combineErrors(err, rerr)
		}
	}

	if s.opts.OnArchive != nil {
		s.opts.OnArchive(zipPath, len(summary.Entries))
	}
	return err
}

// archiveName returns <dir>/<base>_archive_<YYYYMMDD_HHMMSS>.zip, suffixed with _N if taken
func (s *FileSink) archiveName(now time.Time) string {
	stem := filepath.Join(filepath.Dir(s.opts.Path), filepath.Base(s.opts.Path)+"_archive_"+now.Format("20060102_150405"))
	name := stem + ".zip"
	for i := 1; fileExists(name); i++ {
		name = stem + "_" + strconv.Itoa(i) + ".zip"
	}
	return name
}

// Sync flushes the file to stable storage
func (s *FileSink) Sync() error {
	if s.disabled || s.file == nil {
		return nil
	}
	return s.file.Sync()
}

// Close archives whatever remains in the archive directory, then closes the file
func (s *FileSink) Close() error {
	var err error
	if s.opts.Archive {
		if count, cerr := countRegularFiles(s.archiveDir); cerr == nil && count > 0 {
			if aerr := s.archive(); aerr != nil {
				err = combineErrors(err, fmtErrorf("final archive of '%s' failed: %w", s.archiveDir, aerr))
			}
		}
	}

	if s.file != nil {
		if cerr := s.file.Close(); cerr != nil {
			err = combineErrors(err, cerr)
		}
		s.file = nil
	}
	s.disabled = true
	return err
}

// countRegularFiles counts regular files directly inside dir.
// A missing directory counts as empty.
func countRegularFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n, nil
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
