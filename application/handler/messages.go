package handler

import (
	"slices"
	"strings"
)

// messageWindow remembers the most recent status messages that appeared after
// a baseline. The status panel shows a scrolling tail, so new messages are
// found by aligning the previously seen tail with the current lines.
type messageWindow struct {
	size int
	seen []string
	msgs []string
}

func newMessageWindow(size int) *messageWindow {
	return &messageWindow{size: max(1, size)}
}

// reset forgets every message and treats lines as already seen.
func (w *messageWindow) reset(lines []string) {
	w.seen = append(w.seen[:0], lines...)
	w.msgs = w.msgs[:0]
}

// observe appends the lines that are new since the last observation.
func (w *messageWindow) observe(lines []string) {
	w.msgs = append(w.msgs, appended(w.seen, lines)...)
	if over := len(w.msgs) - w.size; over > 0 {
		w.msgs = append(w.msgs[:0], w.msgs[over:]...)
	}
	w.seen = append(w.seen[:0], lines...)
}

// contains reports whether any remembered message contains phrase,
// ignoring case.
func (w *messageWindow) contains(phrase string) bool {
	phrase = strings.ToLower(phrase)
	for _, m := range w.msgs {
		if strings.Contains(strings.ToLower(m), phrase) {
			return true
		}
	}
	return false
}

// appended returns the suffix of cur that follows the longest overlap
// between the end of prev and the start of cur.
func appended(prev, cur []string) []string {
	for k := min(len(prev), len(cur)); k > 0; k-- {
		if slices.Equal(prev[len(prev)-k:], cur[:k]) {
			return cur[k:]
		}
	}
	return cur
}
