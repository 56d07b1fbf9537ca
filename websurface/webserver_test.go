package websurface

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	mandel "github.com/marben/mandel_explorer"
)

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket.Dial: %v", err)
	}
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func testFrame() *mandel.PixelBuffer {
	buf := mandel.NewPixelBuffer(4, 3)
	for i := range buf.Pix {
		buf.Pix[i] = uint32(i) * 0x010203
	}
	return buf
}

func TestViewerSession(t *testing.T) {
	s := New("")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, ctx, srv)

	var hello helloMessage
	if err := wsjson.Read(ctx, c, &hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" {
		t.Fatalf("hello = %+v", hello)
	}

	if err := wsjson.Write(ctx, c, keyMessage{Key: "zoom-in", Down: true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "zoom-in", func() bool { return s.IsKeyDown(mandel.KeyZoomIn) })
	if s.IsKeyDown(mandel.KeyPanUp) {
		t.Errorf("pan-up held without a message")
	}

	buf := testFrame()
	if err := s.Present(buf); err != nil {
		t.Fatalf("Present: %v", err)
	}
	typ, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	want := make([]byte, 4*len(buf.Pix))
	buf.WriteRGBA(want)
	if typ != websocket.MessageBinary || !bytes.Equal(data, want) {
		t.Errorf("frame message %v % x, want % x", typ, data, want)
	}

	s.ShowStatus(mandel.Status{MaxIterations: 350, View: mandel.Viewport{Scope: 0.5}})
	var st statusMessage
	if err := wsjson.Read(ctx, c, &st); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if st.Type != "status" || st.MaxIterations != 350 || st.Scope != 0.5 {
		t.Errorf("status = %+v", st)
	}

	if err := wsjson.Write(ctx, c, keyMessage{Key: "zoom-in", Down: false}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "zoom-in release", func() bool { return !s.IsKeyDown(mandel.KeyZoomIn) })
}

func TestViewerLeavingReleasesKeys(t *testing.T) {
	s := New("")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, ctx, srv)
	var hello helloMessage
	if err := wsjson.Read(ctx, c, &hello); err != nil {
		t.Fatal(err)
	}

	if err := wsjson.Write(ctx, c, keyMessage{Key: "pan-left", Down: true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pan-left", func() bool { return s.IsKeyDown(mandel.KeyPanLeft) })

	c.Close(websocket.StatusNormalClosure, "")
	waitFor(t, "viewer removal", func() bool { return !s.IsKeyDown(mandel.KeyPanLeft) })
}

func TestViewerCannotQuit(t *testing.T) {
	s := New("")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, ctx, srv)
	var hello helloMessage
	if err := wsjson.Read(ctx, c, &hello); err != nil {
		t.Fatal(err)
	}

	if err := wsjson.Write(ctx, c, keyMessage{Key: "escape", Down: true}); err != nil {
		t.Fatal(err)
	}
	// messages of a viewer are handled in order
	if err := wsjson.Write(ctx, c, keyMessage{Key: "pan-up", Down: true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pan-up", func() bool { return s.IsKeyDown(mandel.KeyPanUp) })
	if s.IsKeyDown(mandel.KeyEscape) {
		t.Errorf("escape from a viewer is held")
	}

	fc, err := mandel.NewFrameController(mandel.Config{
		Width: 4, Height: 4, Scope: 1, MinIterations: 10, MaxIterations: 20,
		GrowthIncrement: 5, GrowthPeriod: 2, StepFraction: 0.05,
	}, s)
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Step(); err != nil {
		t.Errorf("Step after viewer escape: %v", err)
	}
}

func TestLateViewerGetsLastFrame(t *testing.T) {
	s := New("")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	buf := testFrame()
	if err := s.Present(buf); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := dial(t, ctx, srv)

	var hello helloMessage
	if err := wsjson.Read(ctx, c, &hello); err != nil {
		t.Fatal(err)
	}
	if hello.Width != 4 || hello.Height != 3 {
		t.Errorf("hello = %+v", hello)
	}
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4*4*3 {
		t.Errorf("frame of %d bytes", len(data))
	}
}

func TestFramePNG(t *testing.T) {
	s := New("")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	if _, err := s.GetImage(); !errors.Is(err, mandel.ErrNoFrame) {
		t.Errorf("GetImage before first frame: %v", err)
	}
	resp, err := http.Get(srv.URL + "/frame.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d before first frame", resp.StatusCode)
	}

	buf := testFrame()
	if err := s.Present(buf); err != nil {
		t.Fatal(err)
	}
	resp, err = http.Get(srv.URL + "/frame.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	r, g, b, _ := img.At(3, 2).RGBA()
	want := mandel.Unpack(buf.At(3, 2))
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("pixel (3,2) = %d,%d,%d want %v", r>>8, g>>8, b>>8, want)
	}
}

func TestIndexPage(t *testing.T) {
	srv := httptest.NewServer(New("").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body.String(), "myCanvas") {
		t.Errorf("index: %d %q", resp.StatusCode, body.String())
	}
	// the server would ignore it anyway
	if strings.Contains(body.String(), `"escape"`) {
		t.Errorf("index binds escape")
	}
	// zoom-out has several physical keys, releasing one must not release the others
	if !strings.Contains(body.String(), "pressed[phys]") {
		t.Errorf("index does not track physical keys")
	}
}

func TestStartClose(t *testing.T) {
	s := New("127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Addr() == nil {
		t.Fatalf("no address after Start")
	}
	if !s.IsOpen() {
		t.Errorf("surface closed after Start")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if s.IsOpen() {
		t.Errorf("surface open after Close")
	}
}
