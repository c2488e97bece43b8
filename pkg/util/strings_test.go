package util

import "testing"

func TestParseFloatOrZero(t *testing.T) {
	cases := map[string]float64{
		"":         0,
		"   ":      0,
		"abc":      0,
		"12abc":    12,
		"1.5.2":    1.5,
		".5x":      0.5,
		"5.":       5,
		"-.5e1kg":  -5,
		"3e":       3,
		"7e+":      7,
		"0x10":     0,
		"--1":      0,
		"+":        0,
		".":        0,
		"NaN":      0,
		"Inf":      0,
		"Infinity": 0,
		"-Inf":     0,
		"1e400":    0,
		"40":       40,
		" 55 ":     55,
		"1.5":      1.5,
		"-2":       -2,
		"0.0":      0,
		"2.5e1":    25,
	}
	for in, want := range cases {
		if got := ParseFloatOrZero(in); got != want {
			t.Fatalf("ParseFloatOrZero(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("12", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestSplitPair(t *testing.T) {
	k, v, ok := SplitPair("Age = 55")
	if !ok || k != "Age" || v != " 55" {
		t.Fatalf("unexpected split %q %q %v", k, v, ok)
	}
	if _, _, ok := SplitPair("Age"); ok {
		t.Fatalf("expected no pair")
	}
}
