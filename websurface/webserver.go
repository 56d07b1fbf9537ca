// Package websurface streams the explorer to browsers over a websocket.
//
// A viewer receives a JSON hello with the frame size, then every presented
// frame as a binary RGBA message followed by a JSON status message. Viewers
// send key transitions as JSON. A key is held while any viewer holds it.
// Viewers can only navigate: an escape sent by a viewer is ignored, the
// explorer is stopped from the process that runs it.
package websurface

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	mandel "github.com/marben/mandel_explorer"
)

//go:embed static
var static embed.FS

const writeTimeout = 2 * time.Second

// helloMessage is the first message a viewer receives.
type helloMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type statusMessage struct {
	Type            string  `json:"type"`
	CenterRe        float64 `json:"centerRe"`
	CenterIm        float64 `json:"centerIm"`
	Scope           float64 `json:"scope"`
	MaxIterations   int     `json:"maxIterations"`
	FramesSinceMove int     `json:"framesSinceMove"`
	RenderMillis    float64 `json:"renderMillis"`
}

// keyMessage is sent by viewers whenever a key goes down or up.
type keyMessage struct {
	Key  string `json:"key"`
	Down bool   `json:"down"`
}

type viewer struct {
	conn *websocket.Conn
	addr string
	keys map[mandel.Key]bool
}

type Surface struct {
	addr    string
	origins []string
	srv     *http.Server
	lAddr   net.Addr

	mu       sync.Mutex
	viewers  map[*viewer]struct{}
	frame    []byte // RGBA of the last presented frame
	width    int
	height   int
	closed   bool
	serveErr error
}

var _ mandel.DisplaySurface = (*Surface)(nil)
var _ mandel.StatusSink = (*Surface)(nil)
var _ mandel.ImgProvider = (*Surface)(nil)

// New creates a surface listening on addr once started. Websocket upgrades
// are accepted from the given origin patterns, same origin is always allowed.
func New(addr string, originPatterns ...string) *Surface {
	return &Surface{
		addr:    addr,
		origins: originPatterns,
		viewers: make(map[*viewer]struct{}),
	}
}

// Handler serves the viewer page on /, the websocket on /ws and the latest
// frame on /frame.png.
func (s *Surface) Handler() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.websocketHandler)
	mux.HandleFunc("/frame.png", s.frameHandler)
	mux.Handle("/", http.FileServerFS(sub))
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Surface) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}
	s.lAddr = l.Addr()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := s.srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		log.Printf("http server: %v", err)
		s.mu.Lock()
		s.serveErr = err
		s.mu.Unlock()
	}()

	log.Printf("listening on http://%s", s.lAddr)
	return nil
}

// Addr returns the address the surface listens on, nil before Start.
func (s *Surface) Addr() net.Addr {
	return s.lAddr
}

// Close disconnects all viewers and stops the http server.
func (s *Surface) Close() error {
	s.mu.Lock()
	s.closed = true
	viewers := s.viewerList()
	s.mu.Unlock()

	for _, v := range viewers {
		v.conn.Close(websocket.StatusGoingAway, "explorer closed")
	}
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Surface) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Surface) IsKeyDown(k mandel.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for v := range s.viewers {
		if v.keys[k] {
			return true
		}
	}
	return false
}

// Present stores the frame and sends it to every viewer. Viewers that
// cannot keep up are disconnected; only a failed http server is an error.
func (s *Surface) Present(buf *mandel.PixelBuffer) error {
	s.mu.Lock()
	if s.serveErr != nil {
		err := s.serveErr
		s.mu.Unlock()
		return fmt.Errorf("web surface: %w", err)
	}
	if len(s.frame) != 4*len(buf.Pix) {
		s.frame = make([]byte, 4*len(buf.Pix))
	}
	buf.WriteRGBA(s.frame)
	s.width, s.height = buf.Width, buf.Height
	frame := s.frame
	viewers := s.viewerList()
	s.mu.Unlock()

	// frame is only rewritten by the next Present, after these writes return
	for _, v := range viewers {
		s.send(v, func(ctx context.Context) error {
			return v.conn.Write(ctx, websocket.MessageBinary, frame)
		})
	}
	return nil
}

func (s *Surface) ShowStatus(st mandel.Status) {
	msg := statusMessage{
		Type:            "status",
		CenterRe:        st.View.Center.Re,
		CenterIm:        st.View.Center.Im,
		Scope:           st.View.Scope,
		MaxIterations:   st.MaxIterations,
		FramesSinceMove: st.FramesSinceMove,
		RenderMillis:    float64(st.RenderTime) / float64(time.Millisecond),
	}

	s.mu.Lock()
	viewers := s.viewerList()
	s.mu.Unlock()
	for _, v := range viewers {
		s.send(v, func(ctx context.Context) error {
			return wsjson.Write(ctx, v.conn, msg)
		})
	}
}

// GetImage returns a copy of the last presented frame.
func (s *Surface) GetImage() (image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return image.RGBA{}, mandel.ErrNoFrame
	}
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(img.Pix, s.frame)
	return *img, nil
}

// send writes to v with a timeout and drops the viewer on failure.
func (s *Surface) send(v *viewer, write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := write(ctx); err != nil {
		log.Printf("viewer %s: write: %v", v.addr, err)
		s.removeViewer(v)
		v.conn.CloseNow()
	}
}

// viewerList must be called with s.mu held.
func (s *Surface) viewerList() []*viewer {
	viewers := make([]*viewer, 0, len(s.viewers))
	for v := range s.viewers {
		viewers = append(viewers, v)
	}
	return viewers
}

func (s *Surface) addViewer(v *viewer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[v] = struct{}{}
	return len(s.viewers)
}

func (s *Surface) removeViewer(v *viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, v)
}

// hello returns the greeting for a new viewer and a copy of the last frame.
func (s *Surface) hello() (helloMessage, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var frame []byte
	if s.frame != nil {
		frame = append([]byte(nil), s.frame...)
	}
	return helloMessage{Type: "hello", Width: s.width, Height: s.height}, frame
}

// websocketHandler handles the http ws endpoint
// a viewer stays registered until its connection fails or closes
func (s *Surface) websocketHandler(w http.ResponseWriter, r *http.Request) {
	if !s.IsOpen() {
		http.Error(w, "explorer closed", http.StatusServiceUnavailable)
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		log.Println(err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	hello, frame := s.hello()
	if err := wsjson.Write(ctx, c, hello); err != nil {
		log.Printf("viewer %s: hello: %v", r.RemoteAddr, err)
		return
	}
	if frame != nil {
		if err := c.Write(ctx, websocket.MessageBinary, frame); err != nil {
			log.Printf("viewer %s: frame: %v", r.RemoteAddr, err)
			return
		}
	}

	v := &viewer{conn: c, addr: r.RemoteAddr, keys: make(map[mandel.Key]bool)}
	n := s.addViewer(v)
	defer s.removeViewer(v)
	log.Printf("viewer connected: %s (viewers: %d)", r.RemoteAddr, n)

	for {
		var msg keyMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Printf("viewer %s: read: %v", r.RemoteAddr, err)
			}
			log.Printf("viewer disconnected: %s", r.RemoteAddr)
			return
		}
		k, ok := mandel.ParseKey(msg.Key)
		if !ok {
			log.Printf("viewer %s: unknown key %q", r.RemoteAddr, msg.Key)
			continue
		}
		// viewers navigate but cannot stop the explorer for everyone
		if k == mandel.KeyEscape {
			log.Printf("viewer %s: ignoring %s", r.RemoteAddr, k)
			continue
		}
		s.mu.Lock()
		v.keys[k] = msg.Down
		s.mu.Unlock()
	}
}

// frameHandler serves the last presented frame as png.
func (s *Surface) frameHandler(w http.ResponseWriter, r *http.Request) {
	img, err := s.GetImage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, &img); err != nil {
		log.Printf("frame.png: %v", err)
	}
}
