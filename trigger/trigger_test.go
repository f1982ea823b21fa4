package trigger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/tomlinsa/andorview/camera"
)

type fakePulser struct {
	pulses []time.Duration
	err    error
	closed bool
}

func (f *fakePulser) Pulse(width time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.pulses = append(f.pulses, width)
	return nil
}

func (f *fakePulser) Close() error {
	f.closed = true
	return nil
}

func TestControllerFire(t *testing.T) {
	dev := &fakePulser{}
	c := NewController(dev)
	if err := c.Arm(0, ExposurePulseWidth); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if !c.Armed() {
		t.Fatal("controller not armed after Arm")
	}
	if err := c.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if c.Armed() {
		t.Error("controller still armed after Fire")
	}
	if len(dev.pulses) != 1 {
		t.Fatalf("got %d pulses, want 1", len(dev.pulses))
	}
	if dev.pulses[0] != ExposurePulseWidth {
		t.Errorf("pulse width %v, want %v", dev.pulses[0], ExposurePulseWidth)
	}
}

func TestControllerNoDevice(t *testing.T) {
	c := NewController(nil)
	if c.Available() {
		t.Error("controller with no device reports available")
	}
	if err := c.Arm(0, 0); !errors.Is(err, camera.ErrTriggerUnavailable) {
		t.Errorf("Arm error = %v, want ErrTriggerUnavailable", err)
	}
	if err := c.Fire(); !errors.Is(err, camera.ErrTriggerUnavailable) {
		t.Errorf("Fire error = %v, want ErrTriggerUnavailable", err)
	}
}

func TestControllerPulseFailure(t *testing.T) {
	dev := &fakePulser{err: errors.New("usb gone")}
	c := NewController(dev)
	if err := c.Arm(0, DefaultPulseWidth); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if err := c.Fire(); !errors.Is(err, camera.ErrTriggerUnavailable) {
		t.Errorf("Fire error = %v, want ErrTriggerUnavailable", err)
	}
	if c.Faults() != 1 {
		t.Errorf("fault count %d, want 1", c.Faults())
	}
}

func TestControllerClose(t *testing.T) {
	dev := &fakePulser{}
	c := NewController(dev)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !dev.closed {
		t.Error("device not closed")
	}
}

type fakePort struct {
	wrote bytes.Buffer
	reply bytes.Buffer
}

func (f *fakePort) Write(p []byte) (int, error) { return f.wrote.Write(p) }
func (f *fakePort) Read(p []byte) (int, error)  { return f.reply.Read(p) }
func (f *fakePort) Close() error                { return nil }

func TestPulseBoxAck(t *testing.T) {
	port := &fakePort{}
	port.reply.WriteByte(telAck)
	box := &PulseBox{conn: port}
	if err := box.Pulse(10 * time.Millisecond); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	want := encodeTelegram(cmdPulse, 10)
	if !bytes.Equal(port.wrote.Bytes(), want) {
		t.Errorf("wrote % x, want % x", port.wrote.Bytes(), want)
	}
}

func TestPulseBoxVerboseEcho(t *testing.T) {
	port := &fakePort{}
	port.reply.Write(encodeTelegram(cmdPulse, 10))
	port.reply.WriteByte(telAck)
	box := &PulseBox{conn: port}
	if err := box.Pulse(10 * time.Millisecond); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
}

func TestPulseBoxCorruptEcho(t *testing.T) {
	port := &fakePort{}
	echo := encodeTelegram(cmdPulse, 10)
	echo[3] ^= 0xff
	port.reply.Write(echo)
	port.reply.WriteByte(telAck)
	box := &PulseBox{conn: port}
	if err := box.Pulse(10 * time.Millisecond); err == nil {
		t.Fatal("corrupt echo acknowledged without error")
	}
}

func TestTelegramRoundTrip(t *testing.T) {
	tel := encodeTelegram(cmdPulse, 200)
	payload, err := decodeTelegram(tel)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[0] != cmdPulse {
		t.Errorf("cmd byte %#02x, want %#02x", payload[0], cmdPulse)
	}
	if got := uint16(payload[1])<<8 | uint16(payload[2]); got != 200 {
		t.Errorf("width %d, want 200", got)
	}
}

func TestTelegramCorruption(t *testing.T) {
	tel := encodeTelegram(cmdPulse, 10)
	tel[2] ^= 0xff
	if _, err := decodeTelegram(tel); err == nil {
		t.Fatal("corrupted telegram decoded without error")
	}
}
