package accesslog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_TextLinesInCallOrder(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithBuffer(0))

	l.LogRequest("10.0.0.1", "/math/addition")
	l.LogResponse("10.0.0.1", "/math/addition", 200)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\S+ - Request from 10\.0\.0\.1 to /math/addition$`, lines[0])
	assert.Regexp(t, `^\S+ - Response to 10\.0\.0\.1 for /math/addition: 200$`, lines[1])

	ts := strings.SplitN(lines[0], " ", 2)[0]
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestLogger_JSONCarriesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithBuffer(0), WithFormat(FormatJSON))

	l.LogResponse("10.0.0.2", "/convert/units", 400)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "10.0.0.2", entry["client"])
	assert.Equal(t, "/convert/units", entry["path"])
	assert.Equal(t, float64(400), entry["status"])
	assert.Equal(t, "Response to 10.0.0.2 for /convert/units: 400", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

type brokenWriter struct{ calls atomic.Int32 }

func (b *brokenWriter) Write(p []byte) (int, error) {
	b.calls.Add(1)
	return 0, errors.New("disk full")
}

func TestLogger_SinkFailureNeverPanics(t *testing.T) {
	w := &brokenWriter{}
	l := New(w, WithBuffer(0))

	assert.NotPanics(t, func() {
		l.LogRequest("c", "/p")
		l.LogResponse("c", "/p", 500)
	})
	assert.Equal(t, int32(2), w.calls.Load())
	assert.NoError(t, l.Close())
}

type lockedBuffer struct {
	mu  chan struct{}
	buf bytes.Buffer
}

func newLockedBuffer() *lockedBuffer { return &lockedBuffer{mu: make(chan struct{}, 1)} }

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu <- struct{}{}
	defer func() { <-b.mu }()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu <- struct{}{}
	defer func() { <-b.mu }()
	return b.buf.String()
}

func TestLogger_DiodeDeliversAfterClose(t *testing.T) {
	out := newLockedBuffer()
	l := New(out, WithBuffer(16))

	l.LogRequest("c", "/a")
	l.LogResponse("c", "/a", 200)
	require.NoError(t, l.Close())

	got := out.String()
	assert.Contains(t, got, "Request from c to /a")
	assert.Contains(t, got, "Response to c for /a: 200")
	assert.Less(t, strings.Index(got, "Request from"), strings.Index(got, "Response to"))
}
