package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/app"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/gekko3d/airspace/viewrt/rt/feed"
	"github.com/gekko3d/airspace/viewrt/rt/gpu"
	"github.com/gekko3d/airspace/viewrt/rt/input"
	"github.com/gekko3d/airspace/viewrt/rt/platform"
)

func init() {
	runtime.LockOSThread()
}

// how long to wait for the first airspace document
const firstUpdateTimeout = 10 * time.Second

type source interface {
	Updates() <-chan feed.Update
	Close() error
}

type viewer struct {
	cfg     airspace.Config
	log     *airspace.DefaultLogger
	src     source
	updates <-chan feed.Update
	engine  *app.Engine
	events  *app.ChanListener
	win     *platform.Window
	state   store
	bounds  core.Boundary
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	snapshotPath := flag.String("snapshot", "", "airspace document (.json or .yaml), reloaded when it changes")
	feedURL := flag.String("feed", "", "WebSocket URL of a live airspace stream")
	debug := flag.Bool("debug", false, "Enable debug logging and frame statistics")
	headless := flag.Bool("headless", false, "Render without a window")
	frames := flag.Int("frames", 120, "Frames to run in headless mode")
	flag.Parse()

	log := airspace.NewDefaultLogger("viewrt", *debug)
	cfg := airspace.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = airspace.LoadConfig(*configPath); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *snapshotPath != "" {
		cfg.Feed.SnapshotPath = *snapshotPath
	}
	if *feedURL != "" {
		cfg.Feed.WebSocketURL = *feedURL
	}
	if *debug {
		cfg.Debug = true
	}
	log.SetDebug(cfg.Debug)

	v := &viewer{cfg: cfg, log: log}
	var err error
	if *headless {
		err = v.runHeadless(*frames)
	} else {
		err = v.runWindow()
	}
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func (v *viewer) openSource() (feed.Update, error) {
	var err error
	switch {
	case v.cfg.Feed.WebSocketURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), firstUpdateTimeout)
		defer cancel()
		v.src, err = feed.DialWS(ctx, v.cfg.Feed.WebSocketURL, v.log.Named("ws"))
	case v.cfg.Feed.SnapshotPath != "":
		v.src, err = feed.NewFileSource(v.cfg.Feed.SnapshotPath, v.log.Named("file"))
	default:
		return feed.Update{}, errors.New("no airspace source: pass -snapshot or -feed")
	}
	if err != nil {
		return feed.Update{}, err
	}

	v.updates = v.src.Updates()
	select {
	case up, ok := <-v.updates:
		if !ok {
			return feed.Update{}, errors.New("airspace source closed before sending a document")
		}
		return up, nil
	case <-time.After(firstUpdateTimeout):
		return feed.Update{}, fmt.Errorf("no airspace document within %v", firstUpdateTimeout)
	}
}

func (v *viewer) newEngine(backend gpu.Backend, first feed.Update, w, h int) error {
	v.events = app.NewChanListener(64)
	opts := app.OptionsFromConfig(v.cfg)
	opts.Listener = v.events
	v.engine = app.NewEngine(opts, backend, v.log.Named("engine"))
	v.engine.SetSnapshot(first.Snapshot)
	v.bounds = first.Boundary
	if err := v.engine.Mount(first.Boundary, w, h); err != nil {
		if rerr := backend.Release(); rerr != nil {
			v.log.Warnf("release after failed mount: %v", rerr)
		}
		return err
	}
	v.log.Infof("airspace %q: %d entities", first.Name, len(first.Snapshot))
	return nil
}

// pump applies pending feed updates and engine events. Runs on the frame goroutine.
func (v *viewer) pump() {
	for {
		select {
		case up, ok := <-v.updates:
			if !ok {
				v.log.Warnf("airspace source closed; keeping the last snapshot")
				v.updates = nil
				continue
			}
			if up.Boundary != v.bounds {
				v.log.Warnf("airspace boundary changed to %v..%v; restart the viewer to apply it", up.Boundary.Min, up.Boundary.Max)
			}
			v.state.replaceEntities(up.Snapshot)
			v.engine.SetState(up.Snapshot, v.state.selected)
		case ev := <-v.events.C:
			v.handleEvent(ev)
		default:
			return
		}
	}
}

func (v *viewer) handleEvent(ev app.Event) {
	switch ev.Kind {
	case app.EventEntitySelected:
		if v.state.selectEntity(ev.EntityID) {
			v.log.Infof("selected %q", ev.EntityID)
			v.engine.SetSelection(ev.EntityID)
		}
	case app.EventPositionChosen:
		v.state.setDeploymentPosition(ev.Position)
		v.log.Infof("deploy %v at %.1f, %.1f, %.1f", v.state.deploy.DeviceCategory,
			ev.Position.X(), ev.Position.Y(), ev.Position.Z())
	}
}

func (v *viewer) setDeployment(mode core.DeploymentMode) {
	v.state.setDeploymentMode(mode)
	v.engine.SetDeploymentMode(mode)
	if v.win != nil {
		v.win.SetDeploymentCursor(mode.Enabled)
	}
	if mode.Enabled {
		v.log.Infof("deployment mode: %v", mode.DeviceCategory)
	} else {
		v.log.Infof("selection mode")
	}
}

var deployKeys = map[glfw.Key]core.Category{
	glfw.Key1: core.CategoryRadar,
	glfw.Key2: core.CategoryOpticalCamera,
	glfw.Key3: core.CategoryRadioDetector,
	glfw.Key4: core.CategoryGPSJammer,
}

func (v *viewer) runWindow() error {
	first, err := v.openSource()
	if err != nil {
		return err
	}
	defer v.src.Close()

	win, err := platform.Open(v.cfg.Window)
	if err != nil {
		return err
	}
	defer win.Close()
	v.win = win
	win.SetDeploymentCursor(false)

	backend, err := gpu.NewWGPUBackend(win.Window, v.log.Named("gpu"))
	if err != nil {
		return err
	}
	fw, fh := win.FramebufferSize()
	if err := v.newEngine(backend, first, fw, fh); err != nil {
		return err
	}

	win.Attach(input.NewAdapter(v.engine.Post))
	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch {
		case key == glfw.KeyEscape && v.state.deploy.Enabled:
			v.setDeployment(core.DeploymentMode{})
		case key == glfw.KeyEscape:
			w.SetShouldClose(true)
		case key == glfw.KeyF1:
			v.log.Infof("\n%s", v.engine.Profiler().GetStatsString())
		default:
			if c, ok := deployKeys[key]; ok {
				v.setDeployment(core.DeploymentMode{Enabled: true, DeviceCategory: c})
			}
		}
	})

	var sched app.PollScheduler
	loop := app.NewLoop(v.engine, &sched, v.log.Named("loop"))
	loop.Start()
	for !win.ShouldClose() && loop.Running() {
		glfw.PollEvents()
		v.pump()
		sched.Poll(time.Now())
	}
	loop.Stop()

	// no input may reach the engine once teardown starts
	win.Detach()
	return v.engine.Unmount()
}

func (v *viewer) runHeadless(frames int) error {
	first, err := v.openSource()
	if err != nil {
		return err
	}
	defer v.src.Close()

	backend := gpu.NewHeadlessBackend(v.cfg.Window.Width, v.cfg.Window.Height)
	if err := v.newEngine(backend, first, v.cfg.Window.Width, v.cfg.Window.Height); err != nil {
		return err
	}

	var sched app.ManualScheduler
	loop := app.NewLoop(v.engine, &sched, v.log.Named("loop"))
	loop.Start()
	now := time.Now()
	for i := 0; i < frames && loop.Running(); i++ {
		v.pump()
		now = now.Add(time.Second / 60)
		sched.Step(now)
	}
	loop.Stop()

	st := v.engine.Stats()
	v.log.Infof("rendered %d frames: %d entities, %d overlays, %d live geometries",
		backend.Frames, st.Entities, st.Overlays, st.Resources.LiveGeometries())
	if v.cfg.Debug {
		fmt.Print(v.engine.Profiler().GetStatsString())
	}
	return v.engine.Unmount()
}
