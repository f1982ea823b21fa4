package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/types"
	"image/jpeg"
	"image/png"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"goji.io"
	"goji.io/pat"

	"github.com/tomlinsa/andorview/acquire"
	"github.com/tomlinsa/andorview/andor"
	"github.com/tomlinsa/andorview/camera"
	"github.com/tomlinsa/andorview/display"
	"github.com/tomlinsa/andorview/imgrec"
	"github.com/tomlinsa/andorview/trigger"
)

// singleTimeout bounds how long a single exposure request may block for a
// trigger edge that never comes
const singleTimeout = 30 * time.Second

// Viewer provides HTTP bindings on top of the acquisition pipeline.
// RT must be bound to a mux with Bind.
type Viewer struct {
	cam  *andor.Camera
	buf  *acquire.Latest
	surf *display.Surface
	trig *trigger.Controller
	rec  *imgrec.Recorder

	// PresetDir is where named configuration presets live.  Empty disables
	// the preset routes.
	PresetDir string

	mu     sync.Mutex
	sess   *acquire.Session
	worker *acquire.Worker
	cancel context.CancelFunc

	// RouteTable maps goji patterns to http handlers
	RouteTable map[goji.Pattern]http.HandlerFunc
}

// NewViewer returns a viewer with the route table pre-configured
func NewViewer(cam *andor.Camera, buf *acquire.Latest, surf *display.Surface, trig *trigger.Controller, rec *imgrec.Recorder) *Viewer {
	v := &Viewer{cam: cam, buf: buf, surf: surf, trig: trig, rec: rec}
	rt := map[goji.Pattern]http.HandlerFunc{
		pat.Get("/frame.png"):    v.HTTPFramePNG,
		pat.Get("/frame.jpg"):    v.HTTPFrameJPG,
		pat.Get("/frame.fits"):   v.HTTPFrameFITS,
		pat.Get("/histogram"):    v.HTTPHistogram,
		pat.Get("/live"):         v.HTTPLive,
		pat.Get("/capabilities"): v.HTTPCapabilities,
		pat.Get("/status"):       v.HTTPStatus,
		pat.Get("/routes"):       v.HTTPRoutes,

		pat.Post("/acquisition/start"):  v.HTTPStart,
		pat.Post("/acquisition/stop"):   v.HTTPStop,
		pat.Post("/acquisition/single"): v.HTTPSingle,

		pat.Get("/exposure-time"):  v.HTTPGetExposureTime,
		pat.Post("/exposure-time"): v.HTTPSetExposureTime,
		pat.Get("/config"):         v.HTTPGetConfig,
		pat.Post("/config"):        v.HTTPSetConfig,

		pat.Post("/trigger/arm"):      v.HTTPTriggerArm,
		pat.Post("/trigger/fire"):     v.HTTPTriggerFire,
		pat.Get("/trigger/available"): v.HTTPTriggerAvailable,

		pat.Post("/overlay/capture"):   v.HTTPOverlayCapture,
		pat.Get("/overlay"):            v.HTTPOverlayGet,
		pat.Post("/overlay/visible"):   v.HTTPOverlayVisible,
		pat.Post("/overlay/threshold"): v.HTTPOverlayThreshold,
		pat.Post("/overlay/opacity"):   v.HTTPOverlayOpacity,

		pat.Post("/save"): v.HTTPSave,

		pat.Get("/presets"):             v.HTTPPresetList,
		pat.Get("/presets/:name"):       v.HTTPPresetGet,
		pat.Post("/presets/:name"):      v.HTTPPresetSave,
		pat.Post("/presets/:name/load"): v.HTTPPresetLoad,

		pat.Post("/autowrite/root"):    v.HTTPRecSetRoot,
		pat.Get("/autowrite/root"):     v.HTTPRecGetRoot,
		pat.Post("/autowrite/prefix"):  v.HTTPRecSetPrefix,
		pat.Get("/autowrite/prefix"):   v.HTTPRecGetPrefix,
		pat.Post("/autowrite/enabled"): v.HTTPRecSetEnabled,
		pat.Get("/autowrite/enabled"):  v.HTTPRecGetEnabled,
	}
	v.RouteTable = rt
	return v
}

// RT satisfies the route-table convention used by the middleware
func (v *Viewer) RT() map[goji.Pattern]http.HandlerFunc {
	return v.RouteTable
}

// Bind binds every route to the mux
func (v *Viewer) Bind(mux *goji.Mux) {
	for p, h := range v.RouteTable {
		mux.HandleFunc(p, h)
	}
}

// HTTPRoutes lists the bound endpoints as a JSON array
func (v *Viewer) HTTPRoutes(w http.ResponseWriter, r *http.Request) {
	routes := make([]string, 0, len(v.RouteTable))
	for p := range v.RouteTable {
		if s, ok := p.(fmt.Stringer); ok {
			routes = append(routes, s.String())
		}
	}
	sort.Strings(routes)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(routes); err != nil {
		httpError(w, err)
	}
}

// httpError maps the pipeline error taxonomy onto status codes
func httpError(w http.ResponseWriter, err error) {
	var invalid *camera.InvalidConfigurationError
	var hw *camera.HardwareUnavailableError
	code := http.StatusInternalServerError
	switch {
	case errors.As(err, &invalid):
		code = http.StatusBadRequest
	case errors.Is(err, camera.ErrAlreadyRunning), errors.Is(err, camera.ErrNotRunning):
		code = http.StatusConflict
	case errors.As(err, &hw), errors.Is(err, camera.ErrTriggerUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrNoFrame):
		code = http.StatusNotFound
	}
	http.Error(w, err.Error(), code)
}

// HTTPStart begins a free-running acquisition session
func (v *Viewer) HTTPStart(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.worker != nil && v.sess.State() == acquire.Running {
		httpError(w, camera.ErrAlreadyRunning)
		return
	}
	sess := acquire.NewSession(v.cam.Config())
	worker := acquire.NewWorker(v.cam, v.buf, sess, 0)
	ctx, cancel := context.WithCancel(context.Background())
	if err := worker.Start(ctx); err != nil {
		cancel()
		httpError(w, err)
		return
	}
	v.sess, v.worker, v.cancel = sess, worker, cancel
	hp := HumanPayload{T: types.String, String: sess.ID}
	hp.EncodeAndRespond(w, r)
}

// HTTPStop ends the running session.  Stopping an idle viewer is not an
// error.
func (v *Viewer) HTTPStop(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		<-v.worker.Done()
		v.cancel = nil
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPSingle takes one exposure with a temporary trigger mode and replies
// with the rendered image as PNG.  The body is {"str": mode}; empty mode
// means Software.  Rejected while a session is running.
func (v *Viewer) HTTPSingle(w http.ResponseWriter, r *http.Request) {
	str := StrT{}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&str)
		r.Body.Close()
	}
	mode := str.Str
	if mode == "" {
		mode = camera.TriggerSoftware
	}
	if mode == camera.TriggerExternal || mode == camera.TriggerExternalExposure {
		width := trigger.DefaultPulseWidth
		if mode == camera.TriggerExternalExposure {
			width = trigger.ExposurePulseWidth
		}
		if err := v.trig.Arm(0, width); err != nil {
			httpError(w, err)
			return
		}
		// fire once the camera is waiting on the edge
		go func() {
			time.Sleep(50 * time.Millisecond)
			v.trig.Fire()
		}()
	}
	fr, err := acquire.SingleExposure(v.cam, mode, singleTimeout)
	if err != nil {
		httpError(w, err)
		return
	}
	v.surf.RenderOnce(fr)
	img, _ := v.surf.Latest()
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		httpError(w, err)
	}
}

// HTTPFramePNG serves the most recent rendered frame as PNG
func (v *Viewer) HTTPFramePNG(w http.ResponseWriter, r *http.Request) {
	img, _ := v.surf.Latest()
	if img == nil {
		httpError(w, camera.ErrNoFrame)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		httpError(w, err)
	}
}

// HTTPFrameJPG serves the most recent rendered frame as JPEG
func (v *Viewer) HTTPFrameJPG(w http.ResponseWriter, r *http.Request) {
	img, _ := v.surf.Latest()
	if img == nil {
		httpError(w, camera.ErrNoFrame)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 90}); err != nil {
		httpError(w, err)
	}
}

// HTTPFrameFITS serves the most recent raw frame as a FITS file with full
// metadata cards
func (v *Viewer) HTTPFrameFITS(w http.ResponseWriter, r *http.Request) {
	_, fr := v.surf.Latest()
	if fr == nil {
		httpError(w, camera.ErrNoFrame)
		return
	}
	cards := imgrec.HeaderCards(v.cam.Capabilities(), v.cam.Config(), fr)
	// when autowrite is enabled, every served frame also lands on disk
	if v.rec.Enabled {
		if _, err := v.rec.SaveFITS(fr, cards); err != nil {
			log.Printf("autowrite: %v", err)
		}
	}
	w.Header().Set("Content-Type", "image/fits")
	w.Header().Set("Content-Disposition", "attachment; filename=frame.fits")
	if err := imgrec.WriteFITS(w, fr, cards); err != nil {
		httpError(w, err)
	}
}

// HTTPHistogram serves the 256-bin histogram of the rendered frame as a
// JSON array
func (v *Viewer) HTTPHistogram(w http.ResponseWriter, r *http.Request) {
	hist := v.surf.Histogram()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hist[:]); err != nil {
		httpError(w, err)
	}
}

// HTTPCapabilities serves the negotiated capability descriptor
func (v *Viewer) HTTPCapabilities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v.cam.Capabilities()); err != nil {
		httpError(w, err)
	}
}

// status is the wire form of HTTPStatus
type status struct {
	State         string  `json:"state"`
	Session       string  `json:"session,omitempty"`
	Fault         string  `json:"fault,omitempty"`
	FramesPushed  uint64  `json:"framesPushed"`
	FramesDropped uint64  `json:"framesDropped"`
	Rendered      uint64  `json:"rendered"`
	TriggerOK     bool    `json:"triggerAvailable"`
	TriggerFaults int     `json:"triggerFaults"`
	ExposureSec   float64 `json:"exposureSec"`
}

// HTTPStatus serves a summary of the pipeline state
func (v *Viewer) HTTPStatus(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	sess := v.sess
	v.mu.Unlock()
	pushed, dropped := v.buf.Stats()
	st := status{
		State:         acquire.Idle.String(),
		FramesPushed:  pushed,
		FramesDropped: dropped,
		Rendered:      v.surf.Rendered(),
		TriggerOK:     v.trig.Available(),
		TriggerFaults: v.trig.Faults(),
		ExposureSec:   v.cam.Config().ExposureTime.Seconds(),
	}
	if sess != nil {
		st.State = sess.State().String()
		st.Session = sess.ID
		if err := sess.Fault(); err != nil {
			st.Fault = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		httpError(w, err)
	}
}

// HTTPGetExposureTime serves the exposure time in seconds as {"f64": SECS}
func (v *Viewer) HTTPGetExposureTime(w http.ResponseWriter, r *http.Request) {
	hp := HumanPayload{T: types.Float64, Float: v.cam.Config().ExposureTime.Seconds()}
	hp.EncodeAndRespond(w, r)
}

// HTTPSetExposureTime sets the exposure time from {"f64": SECS}.  Rejected
// while a session is running.
func (v *Viewer) HTTPSetExposureTime(w http.ResponseWriter, r *http.Request) {
	f := FloatT{}
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	cfg := v.cam.Config()
	cfg.ExposureTime = time.Duration(f.F64 * float64(time.Second))
	if err := v.cam.Configure(cfg); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPGetConfig serves the live configuration as JSON
func (v *Viewer) HTTPGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v.cam.Config()); err != nil {
		httpError(w, err)
	}
}

// HTTPSetConfig replaces the configuration from a JSON body.  Validation
// failures name the offending field; rejected while running.
func (v *Viewer) HTTPSetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := v.cam.Config()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := v.cam.Configure(cfg); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPTriggerArm arms the trigger controller; body {"f64": DELAY_SECS}
func (v *Viewer) HTTPTriggerArm(w http.ResponseWriter, r *http.Request) {
	f := FloatT{}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&f)
		r.Body.Close()
	}
	delay := time.Duration(f.F64 * float64(time.Second))
	width := trigger.DefaultPulseWidth
	if v.cam.Config().TriggerMode == camera.TriggerExternalExposure {
		width = trigger.ExposurePulseWidth
	}
	if err := v.trig.Arm(delay, width); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPTriggerFire emits one pulse with the armed timing
func (v *Viewer) HTTPTriggerFire(w http.ResponseWriter, r *http.Request) {
	if err := v.trig.Fire(); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPTriggerAvailable reports whether trigger hardware is reachable
func (v *Viewer) HTTPTriggerAvailable(w http.ResponseWriter, r *http.Request) {
	hp := HumanPayload{T: types.Bool, Bool: v.trig.Available()}
	hp.EncodeAndRespond(w, r)
}

// HTTPOverlayCapture snapshots the current rendered view as the overlay
// reference
func (v *Viewer) HTTPOverlayCapture(w http.ResponseWriter, r *http.Request) {
	img, _ := v.surf.Latest()
	if img == nil {
		httpError(w, camera.ErrNoFrame)
		return
	}
	v.surf.Overlay.Capture(img)
	w.WriteHeader(http.StatusOK)
}

// overlayState is the wire form of the overlay settings
type overlayState struct {
	Captured    bool    `json:"captured"`
	Visible     bool    `json:"visible"`
	Threshold   uint8   `json:"threshold"`
	ThresholdOn bool    `json:"thresholdOn"`
	Opacity     float64 `json:"opacity"`
}

// HTTPOverlayGet serves the overlay settings as JSON
func (v *Viewer) HTTPOverlayGet(w http.ResponseWriter, r *http.Request) {
	cutoff, on, opacity, visible := v.surf.Overlay.Settings()
	st := overlayState{
		Captured:    v.surf.Overlay.Captured(),
		Visible:     visible,
		Threshold:   cutoff,
		ThresholdOn: on,
		Opacity:     opacity,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		httpError(w, err)
	}
}

// HTTPOverlayVisible sets overlay visibility from {"bool": B}
func (v *Viewer) HTTPOverlayVisible(w http.ResponseWriter, r *http.Request) {
	b := BoolT{}
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	v.surf.Overlay.SetVisible(b.Bool)
	w.WriteHeader(http.StatusOK)
}

// HTTPOverlayThreshold sets the overlay cutoff from {"int": 0..255}.  A
// negative value turns thresholding off.
func (v *Viewer) HTTPOverlayThreshold(w http.ResponseWriter, r *http.Request) {
	i := IntT{}
	if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if i.Int < 0 {
		v.surf.Overlay.SetThreshold(0, false)
	} else {
		if i.Int > 255 {
			i.Int = 255
		}
		v.surf.Overlay.SetThreshold(uint8(i.Int), true)
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPOverlayOpacity sets the overlay opacity from {"f64": 0..1}
func (v *Viewer) HTTPOverlayOpacity(w http.ResponseWriter, r *http.Request) {
	f := FloatT{}
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	v.surf.Overlay.SetOpacity(f.F64)
	w.WriteHeader(http.StatusOK)
}

// HTTPSave writes the most recent raw frame to the recorder as FITS and
// replies with the path written
func (v *Viewer) HTTPSave(w http.ResponseWriter, r *http.Request) {
	_, fr := v.surf.Latest()
	if fr == nil {
		httpError(w, camera.ErrNoFrame)
		return
	}
	cards := imgrec.HeaderCards(v.cam.Capabilities(), v.cam.Config(), fr)
	fn, err := v.rec.SaveFITS(fr, cards)
	if err != nil {
		httpError(w, err)
		return
	}
	hp := HumanPayload{T: types.String, String: fn}
	hp.EncodeAndRespond(w, r)
}

// HTTPRecSetRoot updates the root folder of the recorder
func (v *Viewer) HTTPRecSetRoot(w http.ResponseWriter, r *http.Request) {
	str := StrT{}
	if err := json.NewDecoder(r.Body).Decode(&str); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	v.rec.Root = str.Str
	w.WriteHeader(http.StatusOK)
}

// HTTPRecGetRoot gets the recorder's root folder
func (v *Viewer) HTTPRecGetRoot(w http.ResponseWriter, r *http.Request) {
	hp := HumanPayload{T: types.String, String: v.rec.Root}
	hp.EncodeAndRespond(w, r)
}

// HTTPRecSetPrefix updates the filename prefix of the recorder
func (v *Viewer) HTTPRecSetPrefix(w http.ResponseWriter, r *http.Request) {
	str := StrT{}
	if err := json.NewDecoder(r.Body).Decode(&str); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	v.rec.Prefix = str.Str
	v.rec.Incr()
	w.WriteHeader(http.StatusOK)
}

// HTTPRecGetPrefix gets the recorder's prefix
func (v *Viewer) HTTPRecGetPrefix(w http.ResponseWriter, r *http.Request) {
	hp := HumanPayload{T: types.String, String: v.rec.Prefix}
	hp.EncodeAndRespond(w, r)
}

// HTTPRecSetEnabled sets the recorder's Enabled field
func (v *Viewer) HTTPRecSetEnabled(w http.ResponseWriter, r *http.Request) {
	b := BoolT{}
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	v.rec.Enabled = b.Bool
	w.WriteHeader(http.StatusOK)
}

// HTTPRecGetEnabled returns the recorder's Enabled field
func (v *Viewer) HTTPRecGetEnabled(w http.ResponseWriter, r *http.Request) {
	hp := HumanPayload{T: types.Bool, Bool: v.rec.Enabled}
	hp.EncodeAndRespond(w, r)
}
