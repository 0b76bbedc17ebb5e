// Package color converts between hex colors and HSL and adjusts lightness so
// colors embedded in Jira markup stay readable on a dark terminal.
package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// MinReadableLightness is the HSL lightness below which colors taken from
// issue descriptions are lifted.
const MinReadableLightness = 0.31

// HSL holds hue in degrees and saturation/lightness in [0, 1].
type HSL struct {
	H, S, L float64
}

// ToHSL parses a "#rrggbb" or "#rgb" color.
func ToHSL(hex string) (HSL, error) {
	c, err := colorful.Hex(expandShortHex(hex))
	if err != nil {
		return HSL{}, fmt.Errorf("parse color %q: %w", hex, err)
	}
	h, s, l := c.Hsl()
	return HSL{H: h, S: s, L: l}, nil
}

// Valid reports whether hex is a "#rrggbb" or "#rgb" color. colorful.Hex
// accepts trailing junk, so the parsed color must format back to the input.
func Valid(hex string) bool {
	full := expandShortHex(hex)
	if len(full) != 7 {
		return false
	}
	c, err := colorful.Hex(full)
	return err == nil && c.Hex() == strings.ToLower(full)
}

// Hex formats an HSL color as "#rrggbb".
func (c HSL) Hex() string {
	return colorful.Hsl(c.H, c.S, c.L).Clamped().Hex()
}

// EnsureLightness returns hex with its lightness raised to at least min.
// Colors already light enough come back unchanged (normalised to lower case).
func EnsureLightness(hex string, min float64) (string, error) {
	hsl, err := ToHSL(hex)
	if err != nil {
		return "", err
	}
	if hsl.L >= min {
		c, _ := colorful.Hex(expandShortHex(hex))
		return c.Hex(), nil
	}
	hsl.L = min
	return hsl.Hex(), nil
}

func expandShortHex(hex string) string {
	if len(hex) == 4 && hex[0] == '#' {
		return string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	return hex
}
