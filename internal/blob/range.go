package blob

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/franz/jukebox/internal/util"
)

// RangeKind tells the three single-range forms apart
type RangeKind int

const (
	// RangeInclusive is bytes=start-end
	RangeInclusive RangeKind = iota
	// RangeOpen is bytes=start-
	RangeOpen
	// RangeSuffix is bytes=-N, the last N bytes
	RangeSuffix
)

func (k RangeKind) String() string {
	switch k {
	case RangeInclusive:
		return "inclusive"
	case RangeOpen:
		return "open"
	case RangeSuffix:
		return "suffix"
	}
	return "unknown"
}

// Range is a parsed Range header. Start and End are used by the inclusive
// form, Start alone by the open form, Length by the suffix form.
type Range struct {
	Kind   RangeKind
	Start  int64
	End    int64
	Length int64
}

// Window is the byte span a Range selects within a blob of a known size
type Window struct {
	Start        int64
	Length       int64
	ContentRange string
}

// ParseRange parses a single-range "bytes=..." header value.
// Multiple ranges, other units and non-numeric bounds are rejected.
func ParseRange(header string) (Range, error) {
	unit, set, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok {
		return Range{}, fmt.Errorf("%w: missing '=' in %q", util.ErrInvalidRange, header)
	}
	if strings.TrimSpace(unit) != "bytes" {
		return Range{}, fmt.Errorf("%w: unsupported unit %q", util.ErrInvalidRange, unit)
	}

	from, to, ok := strings.Cut(strings.TrimSpace(set), "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: missing '-' in %q", util.ErrInvalidRange, header)
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	switch {
	case from == "" && to == "":
		return Range{}, fmt.Errorf("%w: empty range %q", util.ErrInvalidRange, header)

	case from == "":
		n, err := parseOffset(to)
		if err != nil {
			return Range{}, err
		}
		return Range{Kind: RangeSuffix, Length: n}, nil

	case to == "":
		start, err := parseOffset(from)
		if err != nil {
			return Range{}, err
		}
		return Range{Kind: RangeOpen, Start: start}, nil

	default:
		start, err := parseOffset(from)
		if err != nil {
			return Range{}, err
		}
		end, err := parseOffset(to)
		if err != nil {
			return Range{}, err
		}
		if end < start {
			return Range{}, fmt.Errorf("%w: end %d before start %d", util.ErrInvalidRange, end, start)
		}
		return Range{Kind: RangeInclusive, Start: start, End: end}, nil
	}
}

func parseOffset(s string) (int64, error) {
	n, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: bad offset %q", util.ErrInvalidRange, s)
	}
	return int64(n), nil
}

// Window resolves the range against a blob of total bytes.
//
// Inclusive ranges follow RFC 9110: bytes=0-99 is 100 bytes, and an end past
// the blob is clamped to the last byte. Open and suffix ranges report the
// blob size as the upper bound of Content-Range ("bytes 500-1000/1000"),
// which is what existing jukebox clients expect. A range that selects no
// bytes at all is unsatisfiable.
func (r Range) Window(total int64) (Window, error) {
	switch r.Kind {
	case RangeInclusive:
		if r.Start >= total {
			return Window{}, fmt.Errorf("%w: start %d beyond size %d", util.ErrUnsatisfiableRange, r.Start, total)
		}
		end := r.End
		if end > total-1 {
			end = total - 1
		}
		return Window{
			Start:        r.Start,
			Length:       end - r.Start + 1,
			ContentRange: fmt.Sprintf("bytes %d-%d/%d", r.Start, end, total),
		}, nil

	case RangeOpen:
		if r.Start >= total {
			return Window{}, fmt.Errorf("%w: start %d beyond size %d", util.ErrUnsatisfiableRange, r.Start, total)
		}
		return Window{
			Start:        r.Start,
			Length:       total - r.Start,
			ContentRange: fmt.Sprintf("bytes %d-%d/%d", r.Start, total, total),
		}, nil

	case RangeSuffix:
		if r.Length == 0 {
			return Window{}, fmt.Errorf("%w: zero-length suffix", util.ErrUnsatisfiableRange)
		}
		if total == 0 {
			return Window{}, fmt.Errorf("%w: suffix of an empty blob", util.ErrUnsatisfiableRange)
		}
		n := r.Length
		if n > total {
			n = total
		}
		start := total - n
		return Window{
			Start:        start,
			Length:       n,
			ContentRange: fmt.Sprintf("bytes %d-%d/%d", start, total, total),
		}, nil
	}
	return Window{}, fmt.Errorf("%w: unknown range kind %d", util.ErrInvalidRange, r.Kind)
}
