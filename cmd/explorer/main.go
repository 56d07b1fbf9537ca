// explorer is the interactive Mandelbrot explorer.
// It renders into a native window, a terminal or browsers connected over a websocket.
// The last presented frame is served over irpc for `snapshot -remote`.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/marben/irpc"
	mandel "github.com/marben/mandel_explorer"
	"github.com/marben/mandel_explorer/ebitensurface"
	"github.com/marben/mandel_explorer/termsurface"
	"github.com/marben/mandel_explorer/websurface"
)

// main is the entry point of the explorer.
// Failing to open the display or to present a frame is fatal.
func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run() error {
	cfg := mandel.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)
	surface := flag.String("surface", "window", "display surface: window, term or web")
	addr := flag.String("addr", ":8080", "listen address of the web surface")
	view := flag.String("view", "", "start at a landmark: "+strings.Join(mandel.LandmarkNames(), ", "))
	evaluator := flag.String("evaluator", "squared", "escape time evaluator: "+strings.Join(evaluatorNames(), ", "))
	hud := flag.Bool("hud", true, "show view details in the window")
	irpcAddr := flag.String("irpc", ":8081", "serve the current frame over irpc on this address, empty to disable")
	logFile := flag.String("log", "", "log file of the term surface, log output is discarded when empty")
	flag.Parse()

	if *view != "" {
		if err := cfg.ApplyLandmark(*view); err != nil {
			return err
		}
	}
	escape, ok := mandel.Evaluators[*evaluator]
	if !ok {
		return fmt.Errorf("unknown evaluator %q", *evaluator)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch *surface {
	case "window":
		s := ebitensurface.New(cfg, *hud)
		fc, err := mandel.NewFrameController(cfg, s, mandel.WithEvaluator(escape))
		if err != nil {
			return err
		}
		_, stopServing, err := serveFrames(*irpcAddr, fc)
		if err != nil {
			return err
		}
		defer stopServing()
		log.Printf("opening %dx%d window", cfg.Width, cfg.Height)
		return s.Run(fc)

	case "term":
		// the screen owns the terminal, log lines would be drawn over it
		restore, err := redirectLog(*logFile)
		if err != nil {
			return err
		}
		defer restore()
		s, err := termsurface.Open()
		if err != nil {
			return err
		}
		defer s.Close()
		return runLoop(cfg, s, escape, *irpcAddr)

	case "web":
		s := websurface.New(*addr)
		if err := s.Start(); err != nil {
			return err
		}
		defer s.Close()
		return runLoop(cfg, s, escape, *irpcAddr)
	}
	return fmt.Errorf("unknown surface %q", *surface)
}

// runLoop drives surfaces that do not own the main loop until quit or interrupt.
func runLoop(cfg mandel.Config, s mandel.DisplaySurface, escape mandel.EscapeFunc, irpcAddr string) error {
	fc, err := mandel.NewFrameController(cfg, s, mandel.WithEvaluator(escape))
	if err != nil {
		return err
	}
	_, stopServing, err := serveFrames(irpcAddr, fc)
	if err != nil {
		return err
	}
	defer stopServing()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = fc.Run(ctx)
	if ctx.Err() != nil {
		log.Printf("interrupted")
		return nil
	}
	return err
}

// serveFrames serves the last frame presented by p over irpc until stop is called.
// An empty addr serves nothing.
func serveFrames(addr string, p mandel.ImgProvider) (lAddr net.Addr, stop func(), err error) {
	if addr == "" {
		return nil, func() {}, nil
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("net.Listen: %w", err)
	}

	// irpc server with onConnect hook, so we see who fetches frames
	irpcServer := irpc.NewServer(irpc.WithOnConnect(func(ep *irpc.Endpoint) {
		log.Printf("frame client connected: %s", ep.RemoteAddr())
	}))
	irpcServer.AddService(mandel.NewImgProviderIrpcService(p))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := irpcServer.Serve(l); !errors.Is(err, irpc.ErrServerClosed) {
			log.Printf("irpc serve: %v", err)
		}
	}()
	log.Printf("serving frames over irpc on %s", l.Addr())

	return l.Addr(), func() {
		if err := irpcServer.Close(); err != nil {
			log.Printf("irpc close: %v", err)
		}
		<-done
		l.Close()
	}, nil
}

// redirectLog sends log output to the named file, or discards it when name
// is empty. restore puts the output back on stderr.
func redirectLog(name string) (restore func(), err error) {
	if name == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func evaluatorNames() []string {
	names := make([]string, 0, len(mandel.Evaluators))
	for name := range mandel.Evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
