package progression

import "testing"

func TestCurve_Required(t *testing.T) {
	c := DefaultCurve()
	tests := []struct {
		level int
		want  int64
	}{
		{0, 0},
		{1, 500},
		{2, 1414},
		{3, 2598},
		{4, 4000},
	}
	for _, tt := range tests {
		if got := c.Required(tt.level); got != tt.want {
			t.Errorf("Curve.Required(%d) got = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestCurve_Threshold(t *testing.T) {
	c := DefaultCurve()
	tests := []struct {
		level int
		want  int64
	}{
		{1, 0},
		{2, 500},
		{3, 1914},
		{4, 4512},
		{5, 8512},
	}
	for _, tt := range tests {
		if got := c.Threshold(tt.level); got != tt.want {
			t.Errorf("Curve.Threshold(%d) got = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestCurve_LevelFor(t *testing.T) {
	c := DefaultCurve()
	tests := []struct {
		name string
		xp   int64
		want LevelInfo
	}{
		{"Zero", 0, LevelInfo{Level: 1, FloorXP: 0, IntoLevel: 0, Span: 500}},
		{"Negative", -20, LevelInfo{Level: 1, FloorXP: 0, IntoLevel: 0, Span: 500}},
		{"JustBelowLevel2", 499, LevelInfo{Level: 1, FloorXP: 0, IntoLevel: 499, Span: 500}},
		{"ExactlyLevel2", 500, LevelInfo{Level: 2, FloorXP: 500, IntoLevel: 0, Span: 1414}},
		{"MidLevel2", 1200, LevelInfo{Level: 2, FloorXP: 500, IntoLevel: 700, Span: 1414}},
		{"ExactlyLevel3", 1914, LevelInfo{Level: 3, FloorXP: 1914, IntoLevel: 0, Span: 2598}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.LevelFor(tt.xp); got != tt.want {
				t.Errorf("Curve.LevelFor(%d) got = %+v, want %+v", tt.xp, got, tt.want)
			}
		})
	}
}

func TestCurve_LevelForBounds(t *testing.T) {
	c := DefaultCurve()
	prev := 1
	for xp := int64(0); xp <= 50_000; xp += 37 {
		info := c.LevelFor(xp)
		if info.Level < prev {
			t.Fatalf("LevelFor(%d) = %d, dropped below %d", xp, info.Level, prev)
		}
		prev = info.Level

		lo, hi := c.Threshold(info.Level), c.Threshold(info.Level+1)
		if xp < lo || xp >= hi {
			t.Fatalf("LevelFor(%d) = %d, want %d <= xp < %d", xp, info.Level, lo, hi)
		}
	}
}

func TestCurve_LevelForTerminatesOnFlatCurve(t *testing.T) {
	c := Curve{BaseXP: 0, Exponent: 1.5}
	if got := c.LevelFor(1 << 40).Level; got != 1 {
		t.Errorf("LevelFor() on zero-cost curve got = %v, want 1", got)
	}
}

func TestLevelInfo_Percent(t *testing.T) {
	info := LevelInfo{Level: 2, FloorXP: 500, IntoLevel: 700, Span: 1414}
	if got := info.Percent(); got != 49 {
		t.Errorf("LevelInfo.Percent() got = %v, want 49", got)
	}
	if got := info.ToNext(); got != 714 {
		t.Errorf("LevelInfo.ToNext() got = %v, want 714", got)
	}
}
