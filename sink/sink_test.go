package sink

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-motion/frame"
	"github.com/nvr-ai/go-motion/pipeline"
	"github.com/nvr-ai/go-motion/regions"
)

func result(t *testing.T, seq int64, boxes ...image.Rectangle) pipeline.Result {
	t.Helper()
	f, err := frame.Uniform(seq, time.UnixMilli(1_700_000_000_000), 32, 24, 128)
	require.NoError(t, err)

	mask := frame.NewMask(32, 24)
	res := pipeline.Result{Frame: f, Mask: mask}
	for _, b := range boxes {
		mask.Fill(b)
		res.Regions = append(res.Regions, regions.Region{Bounds: b, Area: b.Dx() * b.Dy()})
	}
	return res
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	require.NoError(t, l.Put(result(t, 1)))
	assert.Empty(t, buf.String(), "quiet frames log at debug")

	require.NoError(t, l.Put(result(t, 2, image.Rect(1, 2, 4, 6))))
	out := buf.String()
	assert.Contains(t, out, "motion: detected")
	assert.Contains(t, out, "seq=2")
	assert.Contains(t, out, "region(x=1 y=2 w=3 h=4 area=12)")
}

func TestMulti(t *testing.T) {
	var calls []string
	record := func(name string, err error) pipeline.Sink {
		return pipeline.SinkFunc(func(pipeline.Result) error {
			calls = append(calls, name)
			return err
		})
	}

	m := Multi{record("a", nil), record("b", assert.AnError), record("c", nil)}
	err := m.Put(result(t, 0))
	assert.Same(t, assert.AnError, err)
	assert.Equal(t, []string{"a", "b"}, calls)

	assert.NoError(t, Multi{}.Put(result(t, 0)))
}

func TestPalette(t *testing.T) {
	p := Palette(6)
	require.Len(t, p, 6)
	assert.Equal(t, p[:3], Palette(3))
	for i := 1; i < len(p); i++ {
		assert.NotEqual(t, p[0], p[i])
	}
}

func TestAnnotate(t *testing.T) {
	res := result(t, 0, image.Rect(4, 4, 12, 10))
	img := Annotate(res, 1)
	require.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())

	box := color.NRGBAModel.Convert(Palette(1)[0]).(color.NRGBA)
	gray := color.NRGBA{128, 128, 128, 255}
	assert.Equal(t, box, img.NRGBAAt(4, 4))
	assert.Equal(t, box, img.NRGBAAt(11, 9))
	assert.Equal(t, gray, img.NRGBAAt(6, 6), "interior untouched")
	assert.Equal(t, gray, img.NRGBAAt(12, 10), "max is exclusive")

	orig := res.Frame.Pixel(4, 4)
	assert.Equal(t, []uint8{128}, orig, "frame untouched")
}

func TestFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFiles(dir, OnlyMotion(), WithMasks())
	require.NoError(t, err)

	require.NoError(t, s.Put(result(t, 3)))
	_, err = os.Stat(s.Path(3))
	assert.True(t, os.IsNotExist(err), "quiet frame skipped")

	require.NoError(t, s.Put(result(t, 4, image.Rect(2, 2, 8, 8))))
	assert.Equal(t, filepath.Join(dir, "frame-000004.png"), s.Path(4))

	img, err := imaging.Open(s.Path(4))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())

	mask, err := imaging.Open(filepath.Join(dir, "mask-000004.png"))
	require.NoError(t, err)
	r, _, _, _ := mask.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(result(t, 9, image.Rect(1, 2, 4, 6)))
	assert.Equal(t, EventMotion, ev.Type)
	assert.Equal(t, int64(9), ev.Seq)
	assert.Equal(t, int64(1_700_000_000_000), ev.Timestamp)
	assert.Equal(t, []Box{{X: 1, Y: 2, W: 3, H: 4, Area: 12}}, ev.Regions)
}

func TestWebSocketBroadcast(t *testing.T) {
	hub := NewWebSocket(nil, true)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?clientId=cam-test"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var welcome Event
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, EventWelcome, welcome.Type)
	assert.Equal(t, "cam-test", welcome.ClientID)
	assert.Equal(t, 1, hub.Clients())

	require.NoError(t, hub.Put(result(t, 1)))
	require.NoError(t, hub.Put(result(t, 2, image.Rect(5, 5, 9, 9))))

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventMotion, ev.Type)
	assert.Equal(t, int64(2), ev.Seq, "quiet frame not broadcast")
	assert.Equal(t, []Box{{X: 5, Y: 5, W: 4, H: 4, Area: 16}}, ev.Regions)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestNewMotionEvent(t *testing.T) {
	start := time.UnixMilli(1_000)
	ev := NewMotionEvent(MotionEvent{Kind: MotionEnded, ID: 3, Seq: 40, Start: start, Last: start.Add(2500 * time.Millisecond)})
	assert.Equal(t, Event{Type: "motion_end", Seq: 40, Timestamp: 3_500, EventID: 3, DurationMS: 2_500}, ev)
}

func TestWebSocketClose(t *testing.T) {
	hub := NewWebSocket(nil, false)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var welcome Event
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.NotEmpty(t, welcome.ClientID)

	hub.Close()
	assert.Zero(t, hub.Clients())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
