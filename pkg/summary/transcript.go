// Package summary turns a session's transcribed turns into a formatted
// transcript and, via a configured LLM, a markdown outline.
package summary

import (
	"fmt"
	"strings"
	"time"
)

// Entry is one transcribed turn of a session, as supplied by the client in
// a wrapup request.
type Entry struct {
	UserID    string
	UserName  string
	Text      string
	StartTS   float64
}

// GenerateTranscript formats entries into a plain-text transcript, one line
// per turn prefixed with a wall-clock timestamp.
func GenerateTranscript(entries []Entry, sessionName string) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("# Transcript for session: %s\n", sessionName))
	for _, e := range entries {
		ts := time.Unix(int64(e.StartTS), 0).Format("15:04:05")
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, e.UserName, e.Text))
	}
	return strings.Join(lines, "\n")
}
