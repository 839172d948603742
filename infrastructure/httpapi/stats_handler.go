package httpapi

import (
	"net/http"

	"term-chatroom/observability"
)

// WriteStats renders the room counters for operators and probes.
func WriteStats(w http.ResponseWriter, stats observability.ChatStats) {
	writeJSON(w, http.StatusOK, stats)
}
