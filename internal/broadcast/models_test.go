package broadcast

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestNormalizeDuration_valid_range(t *testing.T) {
	for _, d := range []float64{1, 30, 1800, 3600, 86400} {
		if got := NormalizeDuration(d); got != d {
			t.Errorf("NormalizeDuration(%v) = %v, want unchanged", d, got)
		}
	}
}

func TestNormalizeDuration_invalid_maps_to_default(t *testing.T) {
	invalid := []float64{0, -1, -3600, 86401, 1e12, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, d := range invalid {
		got := NormalizeDuration(d)
		if got != DefaultDurationSeconds {
			t.Errorf("NormalizeDuration(%v) = %v, want default %v", d, got, DefaultDurationSeconds)
		}
		if got <= 0 || got > MaxDurationSeconds {
			t.Errorf("NormalizeDuration(%v) = %v outside (0, 86400]", d, got)
		}
	}
}

func TestCanonicalMediaRef(t *testing.T) {
	cases := map[string]string{
		"a.mp4":                  "a.mp4",
		"a.mp4?sig=xyz":          "a.mp4",
		"a.mp4?sig=abc&exp=99":   "a.mp4",
		"a.mp4#t=30":             "a.mp4",
		"dir/a.mp4?x=1#frag":     "dir/a.mp4",
		"":                       "",
		"https://cdn/x.m3u8?k=v": "https://cdn/x.m3u8",
	}
	for in, want := range cases {
		if got := CanonicalMediaRef(in); got != want {
			t.Errorf("CanonicalMediaRef(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSameProgram(t *testing.T) {
	a := Program{ID: 7, MediaRef: "a.mp4?sig=xyz"}
	b := Program{ID: 7, MediaRef: "a.mp4?sig=abc"}
	if !SameProgram(a, b) {
		t.Error("signature-only change should be the same program")
	}

	c := Program{ID: 7, MediaRef: "b.mp4"}
	if SameProgram(a, c) {
		t.Error("different media should not be the same program")
	}

	d := Program{ID: 8, MediaRef: "a.mp4?sig=xyz"}
	if SameProgram(a, d) {
		t.Error("different id should not be the same program")
	}
}

func TestStandbyProgram_derived_from_channel(t *testing.T) {
	p := StandbyProgram(42, refTime)

	if p.DurationSeconds != StandbyDurationSeconds {
		t.Errorf("standby duration = %v, want %v", p.DurationSeconds, StandbyDurationSeconds)
	}
	if !p.Start.Equal(refTime) {
		t.Errorf("standby start = %v, want now", p.Start)
	}
	if !strings.Contains(p.MediaRef, "42") {
		t.Errorf("standby media %q should derive from channel id", p.MediaRef)
	}
	if other := StandbyProgram(43, refTime); other.MediaRef == p.MediaRef {
		t.Error("different channels should get different standby clips")
	}
}

func TestProgram_End(t *testing.T) {
	p := prog(1, refTime, 1800, "a.mp4")
	want := refTime.Add(30 * time.Minute)
	if !p.End().Equal(want) {
		t.Errorf("End() = %v, want %v", p.End(), want)
	}
}
