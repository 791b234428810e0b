package progression

import "math"

// maxLevel bounds the accumulation walk for degenerate curves.
const maxLevel = 1_000_000

// Curve maps cumulative XP to levels. Required(L) is the XP needed to
// advance from level L to L+1.
type Curve struct {
	BaseXP   float64
	Exponent float64
}

func DefaultCurve() Curve {
	return Curve{BaseXP: 500, Exponent: 1.5}
}

func (c Curve) Required(level int) int64 {
	if level < 1 {
		return 0
	}
	v := math.Floor(c.BaseXP * math.Pow(float64(level), c.Exponent))
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// Threshold is the cumulative XP at which level is reached.
func (c Curve) Threshold(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		req := c.Required(l)
		if req <= 0 || total > math.MaxInt64-req {
			return math.MaxInt64
		}
		total += req
	}
	return total
}

type LevelInfo struct {
	Level int
	// FloorXP is the cumulative XP at which Level was reached.
	FloorXP int64
	// IntoLevel is how far xp is past FloorXP.
	IntoLevel int64
	// Span is Required(Level), the size of the current level.
	Span int64
}

func (li LevelInfo) ToNext() int64 {
	return li.Span - li.IntoLevel
}

func (li LevelInfo) Percent() int {
	if li.Span <= 0 {
		return 0
	}
	return int(li.IntoLevel * 100 / li.Span)
}

// LevelFor returns the greatest level whose threshold does not exceed xp,
// walking the curve one level at a time. Negative xp is treated as zero.
func (c Curve) LevelFor(xp int64) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	level, total := 1, int64(0)
	for level < maxLevel {
		req := c.Required(level)
		if req <= 0 || total > math.MaxInt64-req || total+req > xp {
			break
		}
		total += req
		level++
	}

	return LevelInfo{
		Level:     level,
		FloorXP:   total,
		IntoLevel: xp - total,
		Span:      c.Required(level),
	}
}
