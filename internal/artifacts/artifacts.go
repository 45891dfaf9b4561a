// Package artifacts reads PHP sources out of uploaded archives (zip, tar,
// tar.gz) in memory with bounded decompression. Nothing is extracted to disk.
package artifacts

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/phpguard/phpguard/internal/logging"
	"github.com/phpguard/phpguard/internal/types"
)

// ErrUnsupported is returned for files that are not a recognized archive.
var ErrUnsupported = errors.New("unsupported archive format")

var (
	errByteBudget = errors.New("byte budget exceeded")
	errTimeBudget = errors.New("time budget exceeded")
)

// Limits bounds how much of an archive is read.
type Limits struct {
	MaxArchiveBytes int64
	MaxEntries      int
	MaxEntryBytes   int64
	TimeBudget      time.Duration
}

// DefaultLimits are used by the CLI when nothing is configured.
var DefaultLimits = Limits{
	MaxArchiveBytes: 256 << 20,
	MaxEntries:      20000,
	MaxEntryBytes:   4 << 20,
	TimeBudget:      2 * time.Minute,
}

// WithDefaults fills zero or negative fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits
	if l.MaxArchiveBytes <= 0 {
		l.MaxArchiveBytes = d.MaxArchiveBytes
	}
	if l.MaxEntries <= 0 {
		l.MaxEntries = d.MaxEntries
	}
	if l.MaxEntryBytes <= 0 {
		l.MaxEntryBytes = d.MaxEntryBytes
	}
	if l.TimeBudget <= 0 {
		l.TimeBudget = d.TimeBudget
	}
	return l
}

// Stats summarizes what was read and why reading stopped early.
type Stats struct {
	Entries          int
	Skipped          int
	AbortedByBytes   bool
	AbortedByEntries bool
	AbortedByTime    bool
}

// Truncated reports whether any limit cut the archive short.
func (s Stats) Truncated() bool {
	return s.AbortedByBytes || s.AbortedByEntries || s.AbortedByTime
}

// PathAllowFunc returns true if the given entry label should be scanned.
// When nil, all .php entries are allowed.
type PathAllowFunc func(rel string) bool

// Reader collects PHP units from one archive.
type Reader struct {
	Limits Limits
	Allow  PathAllowFunc
	Logger hclog.Logger
}

// IsArchive reports whether p has a supported archive extension.
func IsArchive(p string) bool {
	lower := strings.ToLower(p)
	for _, ext := range []string{".zip", ".tar", ".tgz", ".tar.gz"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsPHP reports whether name has a .php extension (any case).
func IsPHP(name string) bool {
	return strings.EqualFold(path.Ext(name), ".php")
}

// PHPUnits returns one unit per .php entry of the archive at archivePath, in
// archive order. Labels are entry paths relative to the archive root.
func PHPUnits(ctx context.Context, archivePath string, limits Limits) ([]types.SourceUnit, Stats, error) {
	r := Reader{Limits: limits}
	return r.Units(ctx, archivePath)
}

// Units is PHPUnits with the reader's filter and logger.
func (r Reader) Units(ctx context.Context, archivePath string) ([]types.SourceUnit, Stats, error) {
	var st Stats
	if !IsArchive(archivePath) {
		return nil, st, fmt.Errorf("%s: %w", path.Base(archivePath), ErrUnsupported)
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, st, err
	}
	defer f.Close()

	c := &collector{
		ctx:    ctx,
		reader: r,
		log:    logging.OrNull(r.Logger).Named("artifacts"),
		stats:  &st,
	}
	if r.Limits.TimeBudget > 0 {
		c.deadline = time.Now().Add(r.Limits.TimeBudget)
	}

	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		err = c.zip(f)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return nil, st, fmt.Errorf("open gzip: %w", gzErr)
		}
		defer gz.Close()
		err = c.tar(gz)
	default:
		err = c.tar(f)
	}
	if err != nil {
		return c.units, st, err
	}
	if st.Truncated() {
		c.log.Warn("archive truncated by limits", "archive", path.Base(archivePath),
			"bytes", st.AbortedByBytes, "entries", st.AbortedByEntries, "time", st.AbortedByTime)
	}
	return c.units, st, ctx.Err()
}

type collector struct {
	ctx          context.Context
	reader       Reader
	log          hclog.Logger
	stats        *Stats
	deadline     time.Time
	decompressed int64
	units        []types.SourceUnit
}

func (c *collector) zip(f *os.File) error {
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, fi.Size())
	// non-local names are filtered per entry below
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("open zip: %w", err)
	}
	for _, zf := range zr.File {
		if c.stop() {
			return nil
		}
		if zf.FileInfo().IsDir() {
			continue
		}
		label, ok := c.accept(zf.Name)
		if !ok {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			c.skip(label, err)
			continue
		}
		b, readErr := c.readBounded(rc)
		_ = rc.Close()
		if c.add(label, b, readErr) {
			return nil
		}
	}
	return nil
}

func (c *collector) tar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if c.stop() {
			return nil
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		label, ok := c.accept(hdr.Name)
		if !ok {
			continue
		}
		b, readErr := c.readBounded(tr)
		if c.add(label, b, readErr) {
			return nil
		}
	}
}

// add records an entry; it returns true when reading must stop.
func (c *collector) add(label string, b []byte, err error) bool {
	switch {
	case errors.Is(err, errByteBudget):
		c.stats.AbortedByBytes = true
		return true
	case errors.Is(err, errTimeBudget):
		c.stats.AbortedByTime = true
		return true
	case err != nil:
		c.skip(label, err)
		return false
	}
	c.units = append(c.units, types.SourceUnit{Label: label, Text: string(b)})
	c.stats.Entries++
	return false
}

func (c *collector) skip(label string, err error) {
	c.stats.Skipped++
	c.log.Debug("skipping entry", "entry", label, "error", err)
}

// accept cleans an entry name into a label and applies the filters. Names
// escaping the archive root are rejected.
func (c *collector) accept(name string) (string, bool) {
	label := CleanEntryName(name)
	if label == "" {
		c.stats.Skipped++
		return "", false
	}
	if !IsPHP(label) {
		return "", false
	}
	if c.reader.Allow != nil && !c.reader.Allow(label) {
		return "", false
	}
	return label, true
}

// CleanEntryName returns a slash-separated relative label for an archive
// entry, or "" when the entry would escape the archive root.
func CleanEntryName(name string) string {
	n := strings.ReplaceAll(name, "\\", "/")
	n = path.Clean("/" + n)
	n = strings.TrimPrefix(n, "/")
	if n == "" || n == "." {
		return ""
	}
	for _, seg := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		if seg == ".." {
			return ""
		}
	}
	return n
}

func (c *collector) stop() bool {
	if c.ctx.Err() != nil {
		return true
	}
	l := c.reader.Limits
	if l.MaxEntries > 0 && c.stats.Entries >= l.MaxEntries {
		c.stats.AbortedByEntries = true
		return true
	}
	if l.MaxArchiveBytes > 0 && c.decompressed >= l.MaxArchiveBytes {
		c.stats.AbortedByBytes = true
		return true
	}
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		c.stats.AbortedByTime = true
		return true
	}
	return false
}

// readBounded copies in chunks, charging the archive byte budget and checking
// the deadline between chunks. Entries larger than MaxEntryBytes are skipped.
func (c *collector) readBounded(r io.Reader) ([]byte, error) {
	l := c.reader.Limits
	remain := int64(1 << 62)
	if l.MaxArchiveBytes > 0 {
		remain = l.MaxArchiveBytes - c.decompressed
		if remain <= 0 {
			return nil, errByteBudget
		}
	}
	var buf bytes.Buffer
	const chunk = 32 * 1024
	for remain > 0 {
		if !c.deadline.IsZero() && time.Now().After(c.deadline) {
			return nil, errTimeBudget
		}
		n, err := io.CopyN(&buf, r, min(chunk, remain))
		c.decompressed += n
		remain -= n
		if l.MaxEntryBytes > 0 && int64(buf.Len()) > l.MaxEntryBytes {
			return nil, fmt.Errorf("entry larger than %d bytes", l.MaxEntryBytes)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf.Bytes(), nil
			}
			return nil, err
		}
	}
	// budget used up; anything left in r means the entry was cut short
	var probe [1]byte
	if n, _ := r.Read(probe[:]); n > 0 {
		return nil, errByteBudget
	}
	return buf.Bytes(), nil
}
