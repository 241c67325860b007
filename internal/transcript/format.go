package transcript

import (
	"fmt"
	"math"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// FormatTimestamp renders seconds as m:ss.mmm, or h:mm:ss.mmm from one hour.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, frac)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, s, frac)
}

// FormatRange renders a segment's time span.
func FormatRange(seg Segment) string {
	return FormatTimestamp(seg.Start) + " → " + FormatTimestamp(seg.End)
}

// Language guesses the transcript language by majority vote over segments.
// Returns language.Und for an empty transcript.
func Language(segments []Segment) language.Tag {
	votes := make(map[string]int)
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		code := whatlanggo.DetectLang(text).Iso6391()
		if code == "" {
			continue
		}
		votes[code]++
	}

	var top string
	var topCount int
	for code, n := range votes {
		if n > topCount || (n == topCount && code < top) {
			top, topCount = code, n
		}
	}
	if top == "" {
		return language.Und
	}
	tag, err := language.Parse(top)
	if err != nil {
		return language.Und
	}
	return tag
}
