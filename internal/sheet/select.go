package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive span of 1-based row numbers.
type Range struct {
	From, To int
}

// ParseRanges parses a selection such as "2-5,7" or "3-". An open end runs
// to the last row. An empty selection returns nil (all rows).
func ParseRanges(s string) ([]Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []Range
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isSpan := strings.Cut(part, "-")
		lo, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil || lo < 1 {
			return nil, fmt.Errorf("invalid row selection %q", part)
		}
		hi := lo
		if isSpan {
			to = strings.TrimSpace(to)
			if to == "" {
				hi = int(^uint(0) >> 1)
			} else if hi, err = strconv.Atoi(to); err != nil || hi < lo {
				return nil, fmt.Errorf("invalid row selection %q", part)
			}
		}
		out = append(out, Range{From: lo, To: hi})
	}
	return out, nil
}

// Select keeps the rows whose number falls in any range. Nil ranges keep
// every row.
func Select(rows []Row, ranges []Range) []Row {
	if len(ranges) == 0 {
		return rows
	}
	var out []Row
	for _, r := range rows {
		n := r.Number()
		for _, rg := range ranges {
			if n >= rg.From && n <= rg.To {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
