// tilekit streams a directory of glTF tiles through the tileset pipeline
// and previews the result in the terminal.
//
// Controls:
//
//	Mouse drag  - Orbit
//	Scroll      - Zoom in/out
//	W/S A/D     - Pitch and yaw
//	+/-         - Zoom
//	Space       - Toggle automatic orbit
//	F           - Frame the loaded tiles
//	R           - Reset the camera
//	X           - Toggle wireframe
//	O           - Toggle the debug colorize overlay
//	?           - Toggle HUD
//	Esc         - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"go.uber.org/zap"

	"github.com/taigrr/tilekit/internal/config"
	"github.com/taigrr/tilekit/internal/logger"
	"github.com/taigrr/tilekit/pkg/localengine"
	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/preview"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/tileset"
	"github.com/taigrr/tilekit/pkg/view"
)

const (
	// cellWidth and cellHeight approximate the pixel size of a terminal cell,
	// giving view states a realistic viewport size.
	cellWidth  = 8
	cellHeight = 16

	snapshotWidth   = 320
	snapshotHeight  = 240
	snapshotTimeout = 30 * time.Second
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tilekit - stream and preview glTF tiles in the terminal\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tilekit [options] [dir]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit\n")
		fmt.Fprintf(os.Stderr, "  Scroll, +/- - Zoom\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Space       - Toggle automatic orbit\n")
		fmt.Fprintf(os.Stderr, "  F           - Frame the loaded tiles\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset camera\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  O           - Toggle debug overlay\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()
	if flag.NArg() > 0 && flags.Dir == "" {
		flags.Dir = flag.Arg(0)
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *config.Flags) error {
	cfg, cfgPath, err := config.Load(flags)
	if err != nil {
		return err
	}

	// The interactive preview owns the terminal, so it logs to the file only.
	var console io.Writer
	if cfg.Preview.Snapshot != "" {
		console = os.Stderr
	}
	fc := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fc = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fc, console); err != nil {
		return err
	}
	defer logger.Sync()
	if cfgPath != "" {
		logger.Log.Info("config loaded", zap.String("path", cfgPath))
	}

	sc, err := newScene(cfg)
	if err != nil {
		return err
	}
	defer sc.tileset.Destroy()

	if cfg.Preview.Snapshot != "" {
		return snapshot(sc, cfg.Preview.Snapshot)
	}
	return interactive(sc, cfg, cfgPath, flags)
}

// previewScene is the tileset, the camera looking at it and the orbit
// driving the camera.
type previewScene struct {
	tileset  *tileset.Tileset
	viewport *scene.Viewport
	camera   *scene.Camera
	orbit    *Orbit
	framed   bool
}

func newScene(cfg *config.Config) (*previewScene, error) {
	cam := scene.NewCamera()
	cam.Current = true
	vp := &scene.Viewport{Camera: cam}

	ctx := cfg.Tileset.Context()
	ctx.Log = logger.Named("tileset")
	ts := tileset.New(ctx, filepath.Base(cfg.Tileset.Dir), cfg.Tileset.Dir, localengine.Factory)
	ts.Georeference = &view.Georeference{LocalToGlobal: math3d.Identity()}
	ts.Viewport = vp
	ts.SetOverlay(cfg.Overlay.Provider())
	if err := cfg.Tileset.Apply(ts); err != nil {
		return nil, fmt.Errorf("apply tileset config: %w", err)
	}

	fps := max(cfg.Preview.FPS, 1)
	sc := &previewScene{
		tileset:  ts,
		viewport: vp,
		camera:   cam,
		orbit:    NewOrbit(fps),
	}
	sc.orbit.Apply(cam)
	return sc, nil
}

// step runs one tileset update and frames the content the first time its
// bounds are known.
func (sc *previewScene) step(delta float64) {
	sc.tileset.Update(delta)
	if !sc.framed {
		sc.frame(true)
	}
	sc.orbit.Update()
	sc.orbit.Apply(sc.camera)
}

func (sc *previewScene) frame(snap bool) {
	box, ok := sc.tileset.FocusTarget()
	if !ok {
		return
	}
	sc.orbit.Frame(box, sc.camera.FOV)
	if snap {
		sc.orbit.Snap()
	}
	sc.framed = true
}

func (sc *previewScene) resize(cols, rows int) {
	sc.viewport.Width = cols * cellWidth
	sc.viewport.Height = rows * cellHeight
}

// snapshot streams until every visible tile is loaded, renders one frame
// and writes it to path.
func snapshot(sc *previewScene, path string) error {
	fb := preview.NewFramebuffer(snapshotWidth, snapshotHeight)
	sc.viewport.Width, sc.viewport.Height = snapshotWidth, snapshotHeight
	r := preview.NewRenderer(fb, sc.viewport)

	const delta = 1.0 / 30
	deadline := time.Now().Add(snapshotTimeout)
	settled := 0
	for settled < 2 {
		if time.Now().After(deadline) {
			return errors.New("timed out waiting for tiles to load")
		}
		sc.step(delta)
		if sc.tileset.Engine() != nil && sc.framed && sc.tileset.LoadProgress() >= 100 {
			settled++
		} else {
			settled = 0
		}
		time.Sleep(10 * time.Millisecond)
	}

	st := r.Render(sc.tileset.Node)
	logger.Log.Info("snapshot",
		zap.String("path", path),
		zap.Int("instances", st.Instances),
		zap.Int("triangles", st.Triangles),
		zap.Int("points", st.Points))
	return fb.SavePNG(path)
}

func interactive(sc *previewScene, cfg *config.Config, cfgPath string, flags *config.Flags) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// any-event mouse tracking, SGR extended mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	fb := preview.NewFramebuffer(width, height*2)
	sc.resize(width, height)
	r := preview.NewRenderer(fb, sc.viewport)
	if cfg.Preview.Mode == "wireframe" {
		r.Mode = preview.Wireframe
	}
	hud := NewHUD(sc.tileset.Node.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Events are handled on the frame loop; the tileset is not safe for
	// concurrent use.
	events := make(chan uv.Event, 64)
	go func() {
		for ev := range term.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	reloads := make(chan *config.Config, 1)
	if cfgPath != "" {
		go func() {
			err := config.Watch(ctx, cfgPath, flags, logger.Named("config"), func(c *config.Config) {
				select {
				case reloads <- c:
				default:
				}
			})
			if err != nil {
				logger.Log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	fps := max(cfg.Preview.FPS, 1)
	orbitRate := cfg.Preview.OrbitRate
	autoOrbit := orbitRate != 0
	var debugOverlay *overlay.Provider
	configured := sc.tileset.Overlay()

	var mouseDown bool
	var lastMouseX, lastMouseY int

	handle := func(ev uv.Event) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			term.Erase()
			term.Resize(width, height)
			fb.Resize(width, height*2)
			sc.resize(width, height)

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape", "ctrl+c", "q"):
				cancel()
			case ev.MatchString("w", "up"):
				sc.orbit.Rotate(0, 0.1)
			case ev.MatchString("s", "down"):
				sc.orbit.Rotate(0, -0.1)
			case ev.MatchString("a", "left"):
				sc.orbit.Rotate(-0.15, 0)
			case ev.MatchString("d", "right"):
				sc.orbit.Rotate(0.15, 0)
			case ev.MatchString("+", "="):
				sc.orbit.Zoom(0.85)
			case ev.MatchString("-", "_"):
				sc.orbit.Zoom(1 / 0.85)
			case ev.MatchString("space"):
				autoOrbit = !autoOrbit
			case ev.MatchString("f"):
				sc.frame(false)
			case ev.MatchString("r"):
				sc.orbit.Reset()
				sc.framed = false
			case ev.MatchString("x"):
				if r.Mode == preview.Wireframe {
					r.Mode = preview.Solid
				} else {
					r.Mode = preview.Wireframe
				}
			case ev.MatchString("o"):
				if debugOverlay == nil {
					debugOverlay = overlay.NewDebugColorize()
					sc.tileset.SetOverlay(debugOverlay)
				} else {
					debugOverlay = nil
					sc.tileset.SetOverlay(configured)
				}
			case ev.MatchString("?", "shift+/"):
				hud.Visible = !hud.Visible
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				sc.orbit.Rotate(float64(ev.X-lastMouseX)*0.05, float64(ev.Y-lastMouseY)*0.05)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				sc.orbit.Zoom(0.9)
			case uv.MouseWheelDown:
				sc.orbit.Zoom(1 / 0.9)
			}
		}
	}

	reload := func(c *config.Config) {
		if err := c.Tileset.Apply(sc.tileset); err != nil {
			logger.Log.Warn("apply reloaded config", zap.Error(err))
		}
		sc.tileset.SetURL(c.Tileset.Dir)
		if c.Overlay != cfg.Overlay {
			configured = c.Overlay.Provider()
			if debugOverlay == nil {
				sc.tileset.SetOverlay(configured)
			}
		}
		switch c.Preview.Mode {
		case "wireframe":
			r.Mode = preview.Wireframe
		case "solid":
			r.Mode = preview.Solid
		}
		orbitRate = c.Preview.OrbitRate
		cfg = c
	}

	targetDuration := time.Second / time.Duration(fps)
	lastFrame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

	drain:
		for {
			select {
			case ev := <-events:
				handle(ev)
			case c := <-reloads:
				reload(c)
			default:
				break drain
			}
		}

		now := time.Now()
		dt := min(now.Sub(lastFrame).Seconds(), 0.1)
		lastFrame = now

		if autoOrbit {
			sc.orbit.Rotate(orbitRate*dt, 0)
		}
		sc.step(dt)

		st := r.Render(sc.tileset.Node)
		fb.Draw(term, uv.Rect(0, 0, width, height))
		hud.Tick()
		hud.Draw(term, width, height, sc.tileset, st, r.Mode, autoOrbit)
		if err := term.Display(); err != nil {
			return fmt.Errorf("display: %w", err)
		}

		if elapsed := time.Since(now); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
