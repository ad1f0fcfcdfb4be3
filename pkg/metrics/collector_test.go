package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	NewPrometheusHandler(c).ServeHTTP(w, req)
	body, _ := io.ReadAll(w.Result().Body)
	return string(body)
}

func TestCollector_RecordsLinkActivity(t *testing.T) {
	c := NewCollector()

	c.FrameSent(0x41, 10)
	c.FrameSent(0x41, 10)
	c.FrameReceived(0x41, 35, 37)
	c.Error("timeout")
	c.Retry("read_channel")
	c.ChannelDone("write", true)
	c.ChannelDone("write", false)
	c.SetConnected(true)

	out := scrape(t, c)
	for _, want := range []string{
		`pmr171_frames_sent_total{command="0x41"} 2`,
		`pmr171_frames_received_total{command="0x41"} 1`,
		`pmr171_bytes_sent_total 20`,
		`pmr171_bytes_received_total 72`,
		`pmr171_noise_bytes_total 37`,
		`pmr171_errors_total{kind="timeout"} 1`,
		`pmr171_retries_total{op="read_channel"} 1`,
		`pmr171_channels_total{op="write",result="ok"} 1`,
		`pmr171_channels_total{op="write",result="failed"} 1`,
		`pmr171_session_connected 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	c.FrameSent(0x40, 1)
	c.FrameReceived(0x40, 1, 0)
	c.Error("crc")
	c.Retry("write_channel")
	c.ChannelDone("read", true)
	c.SetConnected(false)

	if c.Registry() != nil {
		t.Fatal("expected nil registry from nil collector")
	}
}
