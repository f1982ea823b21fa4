package trigger

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/gousb"

	"github.com/tomlinsa/andorview/camera"
)

// LabJack U3 identifiers and the feedback protocol constants we use.
// Reference: LabJack U3 User's Guide, section 5.2 (low-level functions).
const (
	u3Vendor  = 0x0cd5
	u3Product = 0x0003

	// extended command header byte and the Feedback command number
	u3Extended = 0xf8
	u3Feedback = 0x00

	// IOType for BitStateWrite; bit 7 of the IONumber byte carries the state
	u3BitStateWrite = 11
)

// U3 drives one FIO line of a LabJack U3 as the trigger output.  The bench
// wiring has always used FIO4.
type U3 struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
	line uint8

	closeIface func()
}

// OpenU3 finds the first U3 on the bus and claims its command interface.
// The open is retried briefly; the U3 renumerates slowly after plug-in.
// Returns ErrTriggerUnavailable (wrapped) if no device answers.
func OpenU3(line uint8) (*U3, error) {
	u := &U3{line: line}
	op := func() error {
		ctx := gousb.NewContext()
		dev, err := ctx.OpenDeviceWithVIDPID(u3Vendor, u3Product)
		if err != nil || dev == nil {
			ctx.Close()
			if err == nil {
				err = fmt.Errorf("no U3 on the bus")
			}
			return err
		}
		iface, done, err := dev.DefaultInterface()
		if err != nil {
			dev.Close()
			ctx.Close()
			return err
		}
		out, err := iface.OutEndpoint(1)
		if err != nil {
			done()
			dev.Close()
			ctx.Close()
			return err
		}
		in, err := iface.InEndpoint(2)
		if err != nil {
			done()
			dev.Close()
			ctx.Close()
			return err
		}
		u.ctx, u.dev, u.out, u.in, u.closeIface = ctx, dev, out, in, done
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         500 * time.Millisecond,
		MaxElapsedTime:      2 * time.Second,
		Clock:               backoff.SystemClock,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrTriggerUnavailable, err)
	}
	return u, nil
}

// Pulse drives the FIO line high for width, then low
func (u *U3) Pulse(width time.Duration) error {
	if err := u.setLine(true); err != nil {
		return err
	}
	time.Sleep(width)
	return u.setLine(false)
}

func (u *U3) setLine(high bool) error {
	state := uint8(0)
	if high {
		state = 0x80
	}
	pkt := feedbackBitStateWrite(u.line, state)
	if _, err := u.out.Write(pkt); err != nil {
		return err
	}
	// the U3 always answers a feedback command; drain the response so the
	// endpoint does not back up
	resp := make([]byte, 10)
	_, err := u.in.Read(resp)
	return err
}

// feedbackBitStateWrite builds the extended Feedback command holding a
// single BitStateWrite IOType
func feedbackBitStateWrite(line, state uint8) []byte {
	// header (6) + echo (1) + iotype (2) + pad to even length
	pkt := []byte{
		0,          // checksum8, filled below
		u3Extended, // 0xF8
		2,          // number of data words ((len-6)/2)
		u3Feedback, // extended command number
		0, 0,       // checksum16, filled below
		0, // echo
		u3BitStateWrite,
		line | state,
		0, // pad
	}
	c16 := checksum16(pkt[6:])
	pkt[4] = byte(c16)
	pkt[5] = byte(c16 >> 8)
	pkt[0] = checksum8(pkt[1:6])
	return pkt
}

// checksum8 is the U3's 8-bit checksum: byte sum with the carries folded
// back in twice
func checksum8(b []byte) byte {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	sum = (sum & 0xff) + (sum >> 8)
	sum = (sum & 0xff) + (sum >> 8)
	return byte(sum)
}

func checksum16(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

// Close releases the interface, device and USB context
func (u *U3) Close() error {
	if u.closeIface != nil {
		u.closeIface()
	}
	if u.dev != nil {
		u.dev.Close()
	}
	if u.ctx != nil {
		return u.ctx.Close()
	}
	return nil
}
