package acquire_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomlinsa/andorview/acquire"
	"github.com/tomlinsa/andorview/camera"
)

// fakeCam implements acquire.Adapter with scripted poll outcomes
type fakeCam struct {
	mu      sync.Mutex
	running bool
	stops   int
	starts  int
	seq     uint64
	trigger string

	// pollErr, if set, is returned by every PollFrame call
	pollErr error

	// failAfter faults the camera after that many successful polls
	failAfter int
}

func (c *fakeCam) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return camera.ErrAlreadyRunning
	}
	c.running = true
	c.starts++
	c.seq = 0
	return nil
}

func (c *fakeCam) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.stops++
		c.running = false
	}
	return nil
}

func (c *fakeCam) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *fakeCam) SetTriggerMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trigger = mode
	return nil
}

func (c *fakeCam) Config() camera.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return camera.Config{TriggerMode: c.trigger}
}

func (c *fakeCam) PollFrame(timeout time.Duration) (*camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil, camera.ErrNotRunning
	}
	if c.pollErr != nil {
		return nil, c.pollErr
	}
	if c.failAfter > 0 && c.seq >= uint64(c.failAfter) {
		return nil, &camera.DeviceError{Op: "wait", Cause: errors.New("usb gone")}
	}
	c.seq++
	return &camera.Frame{Seq: c.seq, Width: 1, Height: 1, Pix: []uint16{0}}, nil
}

func (c *fakeCam) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

func TestWorkerStopLatency(t *testing.T) {
	cam := &fakeCam{trigger: camera.TriggerInternal}
	var buf acquire.Latest
	sess := acquire.NewSession(camera.Config{})
	w := acquire.NewWorker(cam, &buf, sess, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if sess.State() != acquire.Running {
		t.Fatalf("expected running session, got %v", sess.State())
	}
	cancel()
	select {
	case <-w.Done():
	case <-time.After(15 * time.Millisecond):
		t.Fatal("worker must exit within one poll interval of the stop signal")
	}
	if cam.Running() {
		t.Error("camera must be disarmed after the loop exits")
	}
	if cam.stopCount() != 1 {
		t.Errorf("expected exactly one Stop call, got %d", cam.stopCount())
	}
	if sess.State() != acquire.Stopped {
		t.Errorf("expected stopped session, got %v", sess.State())
	}
}

func TestWorkerDeviceErrorFaultsSession(t *testing.T) {
	cam := &fakeCam{failAfter: 3}
	var buf acquire.Latest
	sess := acquire.NewSession(camera.Config{})
	w := acquire.NewWorker(cam, &buf, sess, time.Millisecond)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	var fatal error
	select {
	case fatal = <-w.Fatal():
	case <-time.After(time.Second):
		t.Fatal("expected a fatal notification")
	}
	var de *camera.DeviceError
	if !errors.As(fatal, &de) {
		t.Fatalf("expected DeviceError, got %v", fatal)
	}
	<-w.Done()
	if sess.State() != acquire.Faulted {
		t.Errorf("expected faulted session, got %v", sess.State())
	}
	if !errors.As(sess.Fault(), &de) {
		t.Errorf("session should record the fault, got %v", sess.Fault())
	}
	if cam.stopCount() != 1 {
		t.Errorf("expected exactly one Stop call, got %d", cam.stopCount())
	}
	if cam.Running() {
		t.Error("no worker may keep running against a faulted camera")
	}
}

func TestWorkerStoppedCameraIsNotAFault(t *testing.T) {
	cam := &fakeCam{}
	var buf acquire.Latest
	sess := acquire.NewSession(camera.Config{})
	w := acquire.NewWorker(cam, &buf, sess, time.Millisecond)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// stop the camera out from under the worker, as shutdown does
	cam.Stop()
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker must exit once the camera stops")
	}
	if sess.State() != acquire.Stopped {
		t.Errorf("expected stopped session, got %v", sess.State())
	}
	select {
	case err := <-w.Fatal():
		t.Errorf("stopped camera must not raise a fatal, got %v", err)
	default:
	}
	if sess.Fault() != nil {
		t.Errorf("stopped camera must not record a fault, got %v", sess.Fault())
	}
}

func TestWorkerDeliversFrames(t *testing.T) {
	cam := &fakeCam{}
	var buf acquire.Latest
	sess := acquire.NewSession(camera.Config{})
	w := acquire.NewWorker(cam, &buf, sess, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	var got *camera.Frame
	for time.Now().Before(deadline) {
		if f, ok := buf.TryTake(); ok {
			got = f
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-w.Done()
	if got == nil {
		t.Fatal("expected at least one frame in the hand-off buffer")
	}
	if got.Seq == 0 {
		t.Error("frames must carry a nonzero sequence number")
	}
}

func TestSingleExposureRequiresPause(t *testing.T) {
	cam := &fakeCam{trigger: camera.TriggerInternal}
	cam.Start()
	_, err := acquire.SingleExposure(cam, camera.TriggerInternal, time.Second)
	if !errors.Is(err, camera.ErrAlreadyRunning) {
		t.Fatalf("single exposure while live must be rejected, got %v", err)
	}
}

func TestSingleExposureRestoresTrigger(t *testing.T) {
	cam := &fakeCam{trigger: camera.TriggerInternal}
	f, err := acquire.SingleExposure(cam, camera.TriggerSoftware, time.Second)
	if err != nil {
		t.Fatalf("single exposure failed: %v", err)
	}
	if f == nil || f.Seq != 1 {
		t.Fatalf("expected first frame of the ad hoc session, got %+v", f)
	}
	if cam.Config().TriggerMode != camera.TriggerInternal {
		t.Errorf("trigger mode must be restored, got %s", cam.Config().TriggerMode)
	}
	if cam.Running() {
		t.Error("camera must be stopped after a single exposure")
	}
}
