package asr

import "strings"

// suppressRepetition collapses excessive single-token repetition runs in
// text. If the entire segment is one word repeated beyond maxRepeats and
// dropOnly is set, the whole segment is suppressed (returns ""). Otherwise
// every run beyond maxRepeats consecutive tokens, including a whole-segment
// single-token run, is truncated down to maxRepeats occurrences.
func suppressRepetition(text string, maxRepeats int, dropOnly bool) string {
	if maxRepeats <= 0 {
		return text
	}
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return text
	}

	if dropOnly {
		unique := make(map[string]struct{}, len(parts))
		for _, p := range parts {
			unique[p] = struct{}{}
		}
		if len(unique) == 1 && len(parts) > maxRepeats {
			return ""
		}
	}

	out := make([]string, 0, len(parts))
	var last string
	run := 0
	for _, w := range parts {
		if w == last {
			run++
		} else {
			last = w
			run = 1
		}
		if run <= maxRepeats {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
