package timeline

// Rational is an exact num/den time value. Den must be positive; the zero
// value is normalized to 0/1 by the constructors and comparison helpers.
type Rational struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// TimePoint is an absolute position on the timeline. Comparisons are exact
// (cross-multiplied), never floating point, so 1/2 and 2/4 compare equal.
type TimePoint struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// TimeDuration is a relative time span with the same exact semantics as
// TimePoint.
type TimeDuration struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// NewTimePoint returns a TimePoint of num/den. A non-positive den is
// treated as 1.
func NewTimePoint(num, den int64) TimePoint {
	if den <= 0 {
		den = 1
	}
	return TimePoint{Num: num, Den: den}
}

// NewTimeDuration returns a TimeDuration of num/den. A non-positive den is
// treated as 1.
func NewTimeDuration(num, den int64) TimeDuration {
	if den <= 0 {
		den = 1
	}
	return TimeDuration{Num: num, Den: den}
}

func den(d int64) int64 {
	if d <= 0 {
		return 1
	}
	return d
}

func cmp(an, ad, bn, bd int64) int {
	ad, bd = den(ad), den(bd)
	a := an * bd
	b := bn * ad
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Cmp compares t and o exactly, returning -1, 0, or 1.
func (t TimePoint) Cmp(o TimePoint) int { return cmp(t.Num, t.Den, o.Num, o.Den) }

// Before reports whether t is strictly earlier than o.
func (t TimePoint) Before(o TimePoint) bool { return t.Cmp(o) < 0 }

// After reports whether t is strictly later than o.
func (t TimePoint) After(o TimePoint) bool { return t.Cmp(o) > 0 }

// Equal reports whether t and o denote the same instant.
func (t TimePoint) Equal(o TimePoint) bool { return t.Cmp(o) == 0 }

// Add returns the time point d later than t. When denominators match the
// result keeps them; otherwise it is formed over the common denominator.
func (t TimePoint) Add(d TimeDuration) TimePoint {
	td, dd := den(t.Den), den(d.Den)
	if td == dd {
		return TimePoint{Num: t.Num + d.Num, Den: td}
	}
	return TimePoint{Num: t.Num*dd + d.Num*td, Den: td * dd}
}

// Sub returns the duration t-o, mirroring time.Time.Sub.
func (t TimePoint) Sub(o TimePoint) TimeDuration {
	td, od := den(t.Den), den(o.Den)
	if td == od {
		return TimeDuration{Num: t.Num - o.Num, Den: td}
	}
	return TimeDuration{Num: t.Num*od - o.Num*td, Den: td * od}
}

// Cmp compares d and o exactly, returning -1, 0, or 1.
func (d TimeDuration) Cmp(o TimeDuration) int { return cmp(d.Num, d.Den, o.Num, o.Den) }

// Equal reports whether d and o denote the same span.
func (d TimeDuration) Equal(o TimeDuration) bool { return d.Cmp(o) == 0 }

// Add returns d+o.
func (d TimeDuration) Add(o TimeDuration) TimeDuration {
	dd, od := den(d.Den), den(o.Den)
	if dd == od {
		return TimeDuration{Num: d.Num + o.Num, Den: dd}
	}
	return TimeDuration{Num: d.Num*od + o.Num*dd, Den: dd * od}
}

// Sub returns d-o.
func (d TimeDuration) Sub(o TimeDuration) TimeDuration {
	dd, od := den(d.Den), den(o.Den)
	if dd == od {
		return TimeDuration{Num: d.Num - o.Num, Den: dd}
	}
	return TimeDuration{Num: d.Num*od - o.Num*dd, Den: dd * od}
}

// Neg returns -d.
func (d TimeDuration) Neg() TimeDuration { return TimeDuration{Num: -d.Num, Den: den(d.Den)} }

// IsZero reports whether the duration is zero.
func (d TimeDuration) IsZero() bool { return d.Num == 0 }
