package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"

	"postbridge/domain/model"
)

// JobsEvent is the SSE payload pushed whenever the cached job list changes.
type JobsEvent struct {
	Type string                `json:"type"`
	Jobs []model.PublishingJob `json:"jobs"`
}

// Hub fans job list updates out to every open dashboard tab.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan JobsEvent]struct{}
}

func NewJobHub() *Hub {
	return &Hub{subs: make(map[chan JobsEvent]struct{})}
}

// Serve registers an SSE stream; middleware has already checked the session.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan JobsEvent, 8)
	h.addSubscriber(ch)
	defer h.removeSubscriber(ch)

	// Initial comment to keep connection open
	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: publishing_jobs\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(ch chan JobsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan JobsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// BroadcastJobs pushes the refreshed list to every subscriber.
func (h *Hub) BroadcastJobs(jobs []model.PublishingJob) {
	evt := JobsEvent{Type: "publishing_jobs", Jobs: jobs}
	h.mu.RLock()
	for ch := range h.subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
