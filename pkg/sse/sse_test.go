package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishToTopic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(time.Hour)
	r := gin.New()
	r.GET("/events/:topic", func(c *gin.Context) { hub.Serve(c, c.Param("topic")) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/res-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.Subscribers("res-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("res-2", "transcript.ready", map[string]string{"language": "Tamil"})
	hub.Publish("res-1", "transcript.ready", map[string]string{"language": "Hindi"})

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event:") || strings.HasPrefix(line, "data:") {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event: transcript.ready", lines[0])
	assert.Equal(t, `data: {"language":"Hindi"}`, lines[1])

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers("res-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(0)
	hub.Publish("nobody", "dubbing.ready", struct{}{})
	assert.Zero(t, hub.Subscribers("nobody"))
}
