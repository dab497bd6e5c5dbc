package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/task"
)

// terminalStatuses end an SSE stream after being delivered.
var terminalStatuses = map[string]bool{
	"complete":  true,
	"completed": true,
	"failed":    true,
	"error":     true,
}

// streamEvents forwards a bus key's events as SSE until a terminal event or
// client disconnect. The bus replays the last event on subscribe, so a
// reconnecting client immediately sees current progress.
func streamEvents(c *gin.Context, bus *task.Bus, key string) {
	events, cancel := bus.Subscribe(key)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("progress", event)
			return !terminalStatuses[event.Status]
		}
	})
}
