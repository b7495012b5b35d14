package quality

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContrastRatio computes the WCAG 2.1 contrast ratio between two colors
// given as hex strings ("#RRGGBB" or "#RGB"). The result is in [1,21];
// higher is better.
func ContrastRatio(background, foreground string) (float64, error) {
	bg, err := relativeLuminance(background)
	if err != nil {
		return 0, err
	}
	fg, err := relativeLuminance(foreground)
	if err != nil {
		return 0, err
	}

	lighter, darker := bg, fg
	if fg > bg {
		lighter, darker = fg, bg
	}
	return (lighter + 0.05) / (darker + 0.05), nil
}

// relativeLuminance implements the WCAG relative luminance formula.
func relativeLuminance(hex string) (float64, error) {
	r, g, b, err := parseHexColor(hex)
	if err != nil {
		return 0, err
	}
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b), nil
}

func linearize(channel float64) float64 {
	if channel <= 0.03928 {
		return channel / 12.92
	}
	return math.Pow((channel+0.055)/1.055, 2.4)
}

func parseHexColor(hex string) (r, g, b float64, err error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return 0, 0, 0, fmt.Errorf("quality: invalid hex color %q", hex)
	}

	channels := [3]float64{}
	for i := 0; i < 3; i++ {
		v, parseErr := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if parseErr != nil {
			return 0, 0, 0, fmt.Errorf("quality: invalid hex color %q: %w", hex, parseErr)
		}
		channels[i] = float64(v) / 255
	}
	return channels[0], channels[1], channels[2], nil
}
