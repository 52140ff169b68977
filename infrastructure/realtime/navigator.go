package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
)

// NavEvent tells the dashboard to change location. Mode "replace" swaps the
// history entry, "assign" performs a hard navigation.
type NavEvent struct {
	Type   string `json:"type"`
	Mode   string `json:"mode"`
	Target string `json:"target"`
}

// BrowserNavigator bridges server-side navigation decisions to the page over
// SSE. The page reports its current location back so the fallback logic can
// tell whether a soft redirect actually landed.
type BrowserNavigator struct {
	mu       sync.RWMutex
	location string
	subs     map[chan NavEvent]struct{}
}

func NewBrowserNavigator() *BrowserNavigator {
	return &BrowserNavigator{subs: make(map[chan NavEvent]struct{})}
}

func (n *BrowserNavigator) Replace(target string) { n.push("replace", target) }

func (n *BrowserNavigator) Assign(target string) { n.push("assign", target) }

// Location returns the last location the dashboard reported.
func (n *BrowserNavigator) Location() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.location
}

// SetLocation records the location the dashboard says it is on.
func (n *BrowserNavigator) SetLocation(location string) {
	n.mu.Lock()
	n.location = location
	n.mu.Unlock()
}

// Serve registers an SSE stream carrying navigation commands.
func (n *BrowserNavigator) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := make(chan NavEvent, 4)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}()

	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: navigate\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (n *BrowserNavigator) push(mode, target string) {
	evt := NavEvent{Type: "navigate", Mode: mode, Target: target}
	n.mu.RLock()
	for ch := range n.subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	n.mu.RUnlock()
}
