package color

import (
	"math"
	"testing"
)

func TestToHSL(t *testing.T) {
	tests := []struct {
		hex     string
		h, s, l float64
	}{
		{"#ff0000", 0, 1, 0.5},
		{"#000000", 0, 0, 0},
		{"#ffffff", 0, 0, 1},
		{"#fff", 0, 0, 1},
	}
	for _, tt := range tests {
		got, err := ToHSL(tt.hex)
		if err != nil {
			t.Fatalf("ToHSL(%q): %v", tt.hex, err)
		}
		if math.Abs(got.H-tt.h) > 0.5 || math.Abs(got.S-tt.s) > 0.01 || math.Abs(got.L-tt.l) > 0.01 {
			t.Errorf("ToHSL(%q) = %+v, want {%v %v %v}", tt.hex, got, tt.h, tt.s, tt.l)
		}
	}
}

func TestToHSLInvalid(t *testing.T) {
	if _, err := ToHSL("red"); err == nil {
		t.Error("expected error for non-hex color")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		hex  string
		want bool
	}{
		{"#67eb34", true},
		{"#67EB34", true},
		{"#fff", true},
		{"", false},
		{"67eb34", false},
		{"#12", false},
		{"#12345z", false},
		{"#1234567", false},
		{"#ggg", false},
		{"#+12345", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.hex); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.hex, got, tt.want)
		}
	}
}

func TestEnsureLightness(t *testing.T) {
	got, err := EnsureLightness("#000080", MinReadableLightness)
	if err != nil {
		t.Fatal(err)
	}
	hsl, _ := ToHSL(got)
	if hsl.L < MinReadableLightness-0.01 {
		t.Errorf("lightness of %s = %.2f, want >= %.2f", got, hsl.L, MinReadableLightness)
	}
	if hsl.H < 235 || hsl.H > 245 {
		t.Errorf("hue drifted to %.1f", hsl.H)
	}

	light, err := EnsureLightness("#F0F0F0", MinReadableLightness)
	if err != nil {
		t.Fatal(err)
	}
	if light != "#f0f0f0" {
		t.Errorf("light color changed to %s", light)
	}
}
