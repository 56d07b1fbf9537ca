// snapshot renders a single frame of the Mandelbrot set at full iteration
// depth and saves it as a PNG file. With -remote it fetches the frame a
// running explorer presented last instead.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"net"
	"os"
	"time"

	"github.com/marben/irpc"
	mandel "github.com/marben/mandel_explorer"
)

func main() {
	log.Printf("Starting snapshot...")
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	cfg := mandel.DefaultConfig()
	cfg.RegisterFlags(fs)
	view := fs.String("view", "", "render a landmark instead of -re/-im/-scope")
	evaluator := fs.String("evaluator", "squared", "escape time evaluator: squared or modulus")
	remote := fs.String("remote", "", "fetch the current frame from an explorer serving irpc on this address")
	filename := fs.String("o", "mandel.png", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var img *image.RGBA
	if *remote != "" {
		rgba, err := fetch(*remote)
		if err != nil {
			return err
		}
		img = &rgba
	} else {
		var err error
		if img, err = render(cfg, *view, *evaluator); err != nil {
			return err
		}
	}
	return save(*filename, img)
}

// fetch asks a running explorer for the frame it presented last.
func fetch(addr string) (image.RGBA, error) {
	// Step 1: Connect to the explorer
	log.Printf("Connecting to explorer on %s...", addr)
	tcpConn, err := net.Dial("tcp", addr)
	if err != nil {
		return image.RGBA{}, fmt.Errorf("failed to connect to explorer: %w", err)
	}
	ep := irpc.NewEndpoint(tcpConn)
	defer ep.Close()

	// Step 2: Create a client for the ImgProvider interface
	log.Printf("Creating ImgProvider client...")
	client, err := mandel.NewImgProviderIrpcClient(ep)
	if err != nil {
		return image.RGBA{}, fmt.Errorf("failed to create ImgProvider client: %w", err)
	}

	// Step 3: Request the current frame
	log.Printf("Requesting current frame from explorer...")
	img, err := client.GetImage()
	if err != nil {
		return image.RGBA{}, fmt.Errorf("client.GetImage: %w", err)
	}
	log.Printf("Received %dx%d frame", img.Rect.Dx(), img.Rect.Dy())
	return img, nil
}

func render(cfg mandel.Config, view, evaluator string) (*image.RGBA, error) {
	if view != "" {
		if err := cfg.ApplyLandmark(view); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	escape, ok := mandel.Evaluators[evaluator]
	if !ok {
		return nil, fmt.Errorf("unknown evaluator %q", evaluator)
	}

	v := cfg.InitialView()
	log.Printf("Rendering %dx%d at %s with %d iterations...", cfg.Width, cfg.Height, v.Bounds(), cfg.MaxIterations)
	for _, l := range visibleLandmarks(v.Bounds(), cfg.Width, cfg.Height) {
		log.Printf("%s is at pixel (%d, %d)", l.name, l.x, l.y)
	}
	start := time.Now()
	buf := mandel.NewPixelBuffer(cfg.Width, cfg.Height)
	mandel.Render(buf, v, cfg.MaxIterations, escape)
	log.Printf("Rendered in %s", time.Since(start))
	return buf.Image(), nil
}

type landmarkPixel struct {
	name string
	x, y int
}

// visibleLandmarks locates the centers of the landmarks that fall inside r
// on a w x h frame.
func visibleLandmarks(r mandel.Region, w, h int) []landmarkPixel {
	var visible []landmarkPixel
	for _, name := range mandel.LandmarkNames() {
		c := mandel.ViewportFromRegion(mandel.Landmarks[name]).Center
		fx, fy := mandel.ComplexToPixel(c, w, h, r)
		x, y := int(fx), int(fy)
		if fx < 0 || fy < 0 || x >= w || y >= h {
			continue
		}
		visible = append(visible, landmarkPixel{name: name, x: x, y: y})
	}
	return visible
}

func save(filename string, img *image.RGBA) error {
	log.Printf("Saving rendered image to %q...", filename)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	log.Printf("Snapshot saved to %q", filename)
	return nil
}
