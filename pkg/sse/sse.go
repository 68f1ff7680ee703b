package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type client struct {
	topic string
	ch    chan string
}

// Hub 按主题分发服务端事件，慢客户端的消息直接丢弃
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[string]*client // topic -> clientID -> client
	interval time.Duration
	retryMs  int
	buffer   int
}

func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{topics: make(map[string]map[string]*client), interval: interval, retryMs: 5000, buffer: 16}
}

func (h *Hub) subscribe(topic string) (string, *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	c := &client{topic: topic, ch: make(chan string, h.buffer)}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*client)
	}
	h.topics[topic][id] = c
	return id, c
}

func (h *Hub) unsubscribe(topic, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.topics[topic], id)
	if len(h.topics[topic]) == 0 {
		delete(h.topics, topic)
	}
}

// Subscribers 主题当前的订阅数
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish 向主题的全部订阅者发送一个命名事件
func (h *Hub) Publish(topic, event string, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := formatEvent(event, string(b))
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.topics[topic] {
		select {
		case c.ch <- msg:
		default:
		}
	}
}

func formatEvent(event, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// Serve 阻塞直到客户端断开
func (h *Hub) Serve(c *gin.Context, topic string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	id, sub := h.subscribe(topic)
	defer h.unsubscribe(topic, id)

	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	ping := time.NewTicker(h.interval)
	defer ping.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-sub.ch:
			_, _ = c.Writer.Write([]byte(msg))
			flusher.Flush()
		}
	}
}
