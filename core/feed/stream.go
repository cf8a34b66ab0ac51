package feed

import (
	"bufio"
	"bytes"
	"iter"
	"strings"
	"time"

	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
)

// maxSamples is the number of rejected lines kept for logging.
const maxSamples = 5

// Validation is the typed outcome of validating one feed line.
type Validation struct {
	Record ingest.IndicatorRecord
	Err    error
}

// Valid reports whether the line produced a record.
func (v Validation) Valid() bool { return v.Err == nil }

// Validator turns a trimmed, non-comment line into a record.
type Validator interface {
	Validate(line string, fetchedAt time.Time) Validation
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(line string, fetchedAt time.Time) Validation

func (f ValidatorFunc) Validate(line string, fetchedAt time.Time) Validation {
	return f(line, fetchedAt)
}

// Stats counts the lines of a stream. Valid once the stream is drained.
type Stats struct {
	Valid    int
	Invalid  int
	Comments int
	// Samples holds the first rejected lines with their errors.
	Samples []string
}

// InvalidFraction is Invalid over all non-comment lines.
func (s *Stats) InvalidFraction() float64 {
	total := s.Valid + s.Invalid
	if total == 0 {
		return 0
	}
	return float64(s.Invalid) / float64(total)
}

// Stream parses body line by line. Blank and "#" lines are ignored, rejected lines
// are skipped and counted. When the rejected share exceeds maxInvalidFraction the
// sequence ends with an error marked ingest.ErrFeedFormat.
//
// The sequence is lazy and single-use; iterating it twice yields an error.
func Stream(body []byte, fetchedAt time.Time, v Validator, maxInvalidFraction float64) (iter.Seq2[ingest.IndicatorRecord, error], *Stats) {
	stats := &Stats{}
	used := false

	seq := func(yield func(ingest.IndicatorRecord, error) bool) {
		if used {
			yield(ingest.IndicatorRecord{}, errors.New("feed stream already consumed"))
			return
		}
		used = true

		sc := bufio.NewScanner(bytes.NewReader(body))
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				stats.Comments++
				continue
			}
			res := v.Validate(line, fetchedAt)
			if !res.Valid() {
				stats.Invalid++
				if len(stats.Samples) < maxSamples {
					stats.Samples = append(stats.Samples, line+": "+res.Err.Error())
				}
				continue
			}
			stats.Valid++
			if !yield(res.Record, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(ingest.IndicatorRecord{}, errors.Mark(errors.Wrap(err, "scan feed"), ingest.ErrFeedFormat))
			return
		}
		if maxInvalidFraction > 0 && stats.InvalidFraction() > maxInvalidFraction {
			yield(ingest.IndicatorRecord{}, errors.Mark(
				errors.Newf("%d of %d lines rejected (limit %.0f%%)", stats.Invalid, stats.Valid+stats.Invalid, maxInvalidFraction*100),
				ingest.ErrFeedFormat))
		}
	}
	return seq, stats
}
