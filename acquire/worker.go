package acquire

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tomlinsa/andorview/camera"
)

// DefaultPollInterval bounds worst-case stop latency: the worker notices
// cancellation within one interval because PollFrame itself times out.
const DefaultPollInterval = 10 * time.Millisecond

// Adapter is the slice of the camera adapter the acquisition side uses.
// *andor.Camera satisfies it.
type Adapter interface {
	Start() error
	Stop() error
	Running() bool
	PollFrame(timeout time.Duration) (*camera.Frame, error)
	SetTriggerMode(mode string) error
	Config() camera.Config
}

// Worker owns the polling loop for one session.  It is the only caller of
// PollFrame while running; the camera adapter is not shared with the
// display side.
type Worker struct {
	cam      Adapter
	out      *Latest
	sess     *Session
	interval time.Duration

	stopOnce sync.Once
	fatalC   chan error
	done     chan struct{}
}

// NewWorker wires a worker to a camera, a hand-off buffer and a session.
// interval <= 0 selects DefaultPollInterval.
func NewWorker(cam Adapter, out *Latest, sess *Session, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Worker{
		cam:      cam,
		out:      out,
		sess:     sess,
		interval: interval,
		fatalC:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Start arms the camera and begins the polling loop on its own goroutine.
// Cancel ctx to stop; the loop exits within one poll interval and disarms
// the camera exactly once.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.cam.Start(); err != nil {
		return err
	}
	w.sess.setState(Running)
	go w.loop(ctx)
	return nil
}

// Fatal delivers the device error that terminated the loop, if any.
// Buffered; the worker never blocks on it.
func (w *Worker) Fatal() <-chan error {
	return w.fatalC
}

// Done is closed when the loop has exited and the camera is disarmed
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	defer w.stopCamera()
	for {
		select {
		case <-ctx.Done():
			w.sess.setState(Stopped)
			return
		default:
		}
		f, err := w.cam.PollFrame(w.interval)
		if err != nil {
			if errors.Is(err, camera.ErrNoFrame) {
				continue
			}
			if errors.Is(err, camera.ErrNotRunning) {
				// the camera was stopped out from under us, e.g. at
				// shutdown.  that is a stop, not a fault.
				w.sess.setState(Stopped)
				return
			}
			// anything else is terminal for the session.  never retry
			// silently against a faulted device.
			log.Printf("acquire: session %s faulted: %v", w.sess.ID, err)
			w.sess.setFault(err)
			w.fatalC <- err
			return
		}
		w.out.Push(f)
	}
}

func (w *Worker) stopCamera() {
	w.stopOnce.Do(func() {
		if err := w.cam.Stop(); err != nil {
			log.Printf("acquire: stop after loop exit: %v", err)
		}
	})
}

// SingleExposure captures one frame outside the live loop, under the given
// trigger mode, restoring the previous trigger mode afterwards.  The live
// session must be stopped first; capturing single frames while unpaused is
// an operator error.
func SingleExposure(cam Adapter, mode string, timeout time.Duration) (*camera.Frame, error) {
	if cam.Running() {
		return nil, camera.ErrAlreadyRunning
	}
	prev := cam.Config().TriggerMode
	if err := cam.SetTriggerMode(mode); err != nil {
		return nil, err
	}
	restore := func() {
		if err := cam.SetTriggerMode(prev); err != nil {
			log.Printf("acquire: restoring trigger mode %s: %v", prev, err)
		}
	}
	if err := cam.Start(); err != nil {
		restore()
		return nil, err
	}
	defer restore()
	defer cam.Stop()

	deadline := time.Now().Add(timeout)
	for {
		f, err := cam.PollFrame(DefaultPollInterval)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, camera.ErrNoFrame) {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, camera.ErrNoFrame
		}
	}
}
