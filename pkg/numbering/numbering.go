package numbering

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scheme describes one family of sequential numbers, e.g. SBBK/2025/03/0001.
type Scheme struct {
	Prefix    string
	Separator string
	Period    func(t time.Time) string
	Width     int
}

var (
	SBBK = Scheme{Prefix: "SBBK", Separator: "/", Period: yearMonth("/"), Width: 4}
	SPB  = Scheme{Prefix: "SPB", Separator: "/", Period: yearMonth("/"), Width: 4}
	PR   = Scheme{Prefix: "PR", Separator: "/", Period: yearMonth("/"), Width: 4}
	TKT  = Scheme{Prefix: "TKT", Separator: "-", Period: func(t time.Time) string { return t.Format("20060102") }, Width: 4}
	ATK  = Scheme{Prefix: "ATK", Separator: "-", Width: 4}
)

// Asset returns the scheme for asset codes of one category: AST-LPT-2025-0001.
func Asset(categoryCode string) Scheme {
	return Scheme{
		Prefix:    "AST-" + strings.ToUpper(categoryCode),
		Separator: "-",
		Period:    func(t time.Time) string { return t.Format("2006") },
		Width:     4,
	}
}

func yearMonth(sep string) func(time.Time) string {
	return func(t time.Time) string { return t.Format("2006" + sep + "01") }
}

// Base is the number without its sequence part, used to look up the last
// number issued in the same period.
func (s Scheme) Base(at time.Time) string {
	if s.Period == nil {
		return s.Prefix + s.Separator
	}
	return s.Prefix + s.Separator + s.Period(at) + s.Separator
}

func (s Scheme) Format(at time.Time, seq int) string {
	return fmt.Sprintf("%s%0*d", s.Base(at), s.Width, seq)
}

// Next returns the number following last. An empty last, or one from another
// period, starts the sequence at 1.
func (s Scheme) Next(last string, at time.Time) string {
	return s.Format(at, s.nextSequence(last, at))
}

func (s Scheme) nextSequence(last string, at time.Time) int {
	base := s.Base(at)
	if last == "" || !strings.HasPrefix(last, base) {
		return 1
	}

	seq, err := strconv.Atoi(strings.TrimPrefix(last, base))
	if err != nil || seq < 0 {
		return 1
	}

	return seq + 1
}
