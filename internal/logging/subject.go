package logging

import (
	"strconv"
	"strings"
)

// FormatSubject builds the "job · frame N · view M" subject shown in console
// output. Empty parts are omitted and views are shown 1-based.
func FormatSubject(jobID, frame, view string) string {
	jobID = strings.TrimSpace(jobID)
	frame = strings.TrimSpace(frame)
	view = strings.TrimSpace(view)
	parts := make([]string, 0, 3)
	if jobID != "" {
		if len(jobID) > 8 {
			jobID = jobID[:8]
		}
		parts = append(parts, "Job "+jobID)
	}
	if frame != "" {
		parts = append(parts, "frame "+frame)
	}
	if view != "" {
		if n, err := strconv.Atoi(view); err == nil {
			view = strconv.Itoa(n + 1)
		}
		parts = append(parts, "view "+view)
	}
	return strings.Join(parts, " · ")
}
