package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"
	"goji.io"
	yml "gopkg.in/yaml.v2"

	"github.com/tomlinsa/andorview/acquire"
	"github.com/tomlinsa/andorview/andor"
	"github.com/tomlinsa/andorview/camera"
	"github.com/tomlinsa/andorview/display"
	"github.com/tomlinsa/andorview/imgrec"
	"github.com/tomlinsa/andorview/server"
	"github.com/tomlinsa/andorview/server/middleware/locker"
	"github.com/tomlinsa/andorview/trigger"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "andorview.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`
}

type triggercfg struct {
	// Backend selects the trigger hardware: u3, pulsebox, or none
	Backend string `yaml:"Backend"`

	// Line is the DIO line for the u3 backend
	Line int `yaml:"Line"`

	// Port is the serial port for the pulsebox backend
	Port string `yaml:"Port"`
}

type config struct {
	Addr       string        `yaml:"Addr"`
	Root       string        `yaml:"Root"`
	Simulate   bool          `yaml:"Simulate"`
	RefreshHz  float64       `yaml:"RefreshHz"`
	PresetDir  string        `yaml:"PresetDir"`
	Recorder   recorder      `yaml:"Recorder"`
	Trigger    triggercfg    `yaml:"Trigger"`
	ExposureMs float64       `yaml:"ExposureMs"`
	EMGain     int           `yaml:"EMGain"`
	Mode       string        `yaml:"TriggerMode"`
	Binning    int           `yaml:"Binning"`
	AOI        camera.AOI    `yaml:"AOI"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr:       ":8000",
		Root:       "/",
		Simulate:   false,
		RefreshHz:  display.DefaultRefresh,
		PresetDir:  "presets",
		Recorder:   recorder{Root: "frames", Prefix: "ixon-"},
		Trigger:    triggercfg{Backend: "none", Line: 4, Port: "/dev/ttyUSB0"},
		ExposureMs: 16,
		Mode:       camera.TriggerInternal,
		Binning:    1}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `andorview exposes a live view of andor iXon cameras over HTTP
The display surface is any browser or HTTP client; frames stream over
a websocket and stills are served as PNG, JPEG, or FITS.

Usage:
	andorview <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `andorview is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.
The command mkconf generates the configuration file with the default values.

Simulate: true runs against a software camera and needs no hardware at all.

Trigger Backend u3 drives a LabJack-U3-style USB DIO box; pulsebox speaks
to a serial TTL pulse generator on Port.  With Backend none the viewer
runs camera-only and the trigger routes report unavailable.

An AOI of all zeros means full frame.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("andorview version %v\n", Version)
}

// openTrigger opens the configured trigger backend.  Failure is not fatal;
// the viewer degrades to camera-only operation.
func openTrigger(c triggercfg) *trigger.Controller {
	switch c.Backend {
	case "u3":
		dev, err := trigger.OpenU3(uint8(c.Line))
		if err != nil {
			log.Printf("trigger hardware unreachable, continuing camera-only: %v", err)
			return trigger.NewController(nil)
		}
		return trigger.NewController(dev)
	case "pulsebox":
		dev, err := trigger.OpenPulseBox(c.Port)
		if err != nil {
			log.Printf("trigger hardware unreachable, continuing camera-only: %v", err)
			return trigger.NewController(nil)
		}
		return trigger.NewController(dev)
	default:
		return trigger.NewController(nil)
	}
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)

	spincfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " initializing camera",
		SuffixAutoColon: true,
		StopCharacter:   "done",
	}
	spinner, err := yacspin.New(spincfg)
	if err == nil {
		spinner.Start()
	}

	var drv andor.Driver
	if cfg.Simulate {
		drv = andor.NewSim()
	} else {
		log.Println("initializing SDK, andor's code can deadlock here.")
		log.Println("Power cycle the camera if this is stuck.")
		drv, err = andor.NewHardware()
		if err != nil {
			if spinner != nil {
				spinner.StopFail()
			}
			log.Fatal(err)
		}
	}
	cam, err := andor.Open(drv)
	if err != nil {
		if spinner != nil {
			spinner.StopFail()
		}
		log.Fatal(err)
	}
	defer cam.Close()
	if spinner != nil {
		spinner.Stop()
	}

	caps := cam.Capabilities()
	log.Printf("connected to %s s/n %d, %dx%d px, %d-bit",
		caps.Model, caps.Serial, caps.DetectorWidth, caps.DetectorHeight, caps.BitDepth)

	camcfg := camera.DefaultConfig(caps)
	if cfg.ExposureMs > 0 {
		camcfg.ExposureTime = time.Duration(cfg.ExposureMs * float64(time.Millisecond))
	}
	if cfg.Binning > 1 {
		camcfg.Binning = camera.Binning{H: cfg.Binning, V: cfg.Binning}
	}
	if cfg.AOI.Width > 0 && cfg.AOI.Height > 0 {
		camcfg.AOI = cfg.AOI
	}
	if cfg.Mode != "" {
		camcfg.TriggerMode = cfg.Mode
	}
	camcfg.EMGain = cfg.EMGain
	if err := cam.Configure(camcfg); err != nil {
		log.Fatal(err)
	}

	buf := &acquire.Latest{}
	surf := display.NewSurface(buf, cfg.RefreshHz)
	trig := openTrigger(cfg.Trigger)
	defer trig.Close()
	rec := &imgrec.Recorder{Root: cfg.Recorder.Root, Prefix: cfg.Recorder.Prefix}
	rec.Incr()

	renderCtx, stopRender := context.WithCancel(context.Background())
	defer stopRender()
	go surf.Run(renderCtx)

	v := server.NewViewer(cam, buf, surf, trig, rec)
	v.PresetDir = cfg.PresetDir
	l := locker.New()
	locker.Inject(v, l)

	// clean up the submux string
	hndlrS := cfg.Root
	if !strings.HasPrefix(hndlrS, "/") {
		hndlrS = "/" + hndlrS
	}
	hndlrS = strings.TrimSuffix(hndlrS, "/")
	if hndlrS == "" {
		hndlrS = "/"
	}
	mux := goji.NewMux()
	mux.Use(l.Check)
	v.Bind(mux)
	rootMux := chi.NewRouter()
	rootMux.Mount(hndlrS, mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: rootMux}
	go func() {
		log.Println("now listening for requests at", cfg.Addr+cfg.Root)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// stop the worker before the camera on the way out; the adapter must
	// not be shut down under an armed sensor
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
	shutCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	srv.Shutdown(shutCtx)
	stopRender()
	if cam.Running() {
		if err := cam.Stop(); err != nil {
			log.Printf("stopping acquisition: %v", err)
		}
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
