// Package ingest bulk-loads coupon payloads from gzip-compressed JSON-lines
// files.
package ingest

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/coupon-selector/internal/domain/coupon"
)

const (
	// FilePattern matches ingestible files inside a data directory.
	FilePattern = "*.jsonl.gz"

	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	maxLineBytes  = 1 << 20
	progressEvery = 10_000
)

// Admitter admits a raw coupon payload.
type Admitter interface {
	Admit(ctx context.Context, payload []byte) (*coupon.Coupon, error)
}

// Report summarizes an ingest run.
type Report struct {
	Files      int
	Lines      int
	Admitted   int
	Invalid    int
	Duplicates int // repeated within the input
	Conflicts  int // already stored before the run
}

// Discover returns the ingestible files in dir, sorted by name.
func Discover(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, FilePattern))
	if err != nil {
		return nil, errors.Wrap(err, "glob data dir")
	}
	sort.Strings(files)
	return files, nil
}

// Run ingests files in two passes. Pass 1 builds one bloom filter per file
// concurrently. Pass 2 re-streams the files in order and admits payloads;
// only codes the filters flag as possibly repeated are tracked exactly. The
// first occurrence of a code wins and later occurrences are counted as
// duplicates. Invalid payloads and codes that already exist are logged and
// counted, never fatal.
func Run(ctx context.Context, a Admitter, files []string) (Report, error) {
	lg := zctx.From(ctx)
	report := Report{Files: len(files)}

	lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	scans, err := scanFiles(ctx, files)
	if err != nil {
		return report, errors.Wrap(err, "build bloom filters")
	}
	for _, s := range scans {
		report.Lines += s.lines
	}

	lg.Info("Pass 2: admitting payloads", zap.Int("lines", report.Lines))
	dd := newDedupe(scans)
	processed := 0
	for i, path := range files {
		err := streamGzFile(ctx, path, func(n int, payload []byte) error {
			processed++
			if processed%progressEvery == 0 {
				lg.Info("Ingest progress", zap.Int("processed", processed), zap.Int("total", report.Lines))
			}

			if code := peekCode(payload); code != "" && !dd.first(i, code) {
				report.Duplicates++
				lg.Warn("Duplicate code in input",
					zap.String("code", code),
					zap.String("file", path),
					zap.Int("line", n),
				)
				return nil
			}

			_, err := a.Admit(ctx, payload)
			var vErr *coupon.ValidationError
			switch {
			case err == nil:
				report.Admitted++
			case errors.As(err, &vErr):
				report.Invalid++
				lg.Warn("Invalid coupon payload",
					zap.String("file", path),
					zap.Int("line", n),
					zap.Strings("errors", vErr.Errors),
				)
			case errors.Is(err, coupon.ErrCodeExists):
				report.Conflicts++
			default:
				return errors.Wrapf(err, "admit %s:%d", path, n)
			}
			return nil
		})
		if err != nil {
			return report, err
		}
	}
	lg.Info("Pass 2 complete", zap.Int("tracked_codes", len(dd.seen)))
	return report, nil
}

// fileScan is the pass 1 result for one file.
type fileScan struct {
	filter *bloom.BloomFilter
	// repeated holds codes the file's own filter already matched when they
	// were read, so it covers in-file duplicates plus false positives.
	repeated map[string]struct{}
	lines    int
}

// scanFiles builds one filter per file, concurrently.
func scanFiles(ctx context.Context, files []string) ([]fileScan, error) {
	scans := make([]fileScan, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			s := fileScan{
				filter:   bloom.NewWithEstimates(bloomCapacity, bloomFPR),
				repeated: make(map[string]struct{}),
			}
			err := streamGzFile(ctx, path, func(_ int, payload []byte) error {
				s.lines++
				code := peekCode(payload)
				if code == "" {
					return nil
				}
				if s.filter.TestString(code) {
					s.repeated[code] = struct{}{}
				} else {
					s.filter.AddString(code)
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			scans[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scans, nil
}

// dedupe decides first occurrences. Codes no filter flags are unique and
// never enter seen.
type dedupe struct {
	scans []fileScan
	seen  map[string]struct{}
}

func newDedupe(scans []fileScan) *dedupe {
	return &dedupe{scans: scans, seen: make(map[string]struct{})}
}

// suspect reports whether code may occur more than once in the input.
func (d *dedupe) suspect(file int, code string) bool {
	if _, ok := d.scans[file].repeated[code]; ok {
		return true
	}
	for j, s := range d.scans {
		if j != file && s.filter.TestString(code) {
			return true
		}
	}
	return false
}

// first reports whether this is the first occurrence of code.
func (d *dedupe) first(file int, code string) bool {
	if !d.suspect(file, code) {
		return true
	}
	if _, ok := d.seen[code]; ok {
		return false
	}
	d.seen[code] = struct{}{}
	return true
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-blank
// line with its 1-based line number.
func streamGzFile(ctx context.Context, path string, fn func(n int, payload []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		if err := fn(n, append([]byte(nil), b...)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// peekCode returns the payload's code field, or "" when it is missing or not
// a string. Such payloads are left for the validator to reject.
func peekCode(payload []byte) string {
	var code string
	d := jx.DecodeBytes(payload)
	if d.Next() != jx.Object {
		return ""
	}
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "code" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		code = s
		return err
	})
	return code
}
