package trigger

import (
	"fmt"
	"io"
	"time"

	"github.com/snksoft/crc"
	"github.com/tarm/serial"

	"github.com/tomlinsa/andorview/camera"
)

// The pulse box is a small serial TTL generator.  One telegram per pulse:
//
//	[SOT][cmd][width ms, big endian uint16][crc16 hi][crc16 lo][EOT]
//
// The CRC is XMODEM over cmd+width.  The box acks with a one-byte 0x06.
const (
	telSOT = 0x02
	telEOT = 0x03
	telAck = 0x06

	cmdPulse = 0x50
)

var crcTable = crc.NewTable(crc.XMODEM)

// crc16 computes the telegram CRC in one line
func crc16(buf []byte) uint16 {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, buf)
	return crcTable.CRC16(c)
}

// PulseBox is a Pulser backed by the serial pulse generator.  Unlike the
// U3, the box times the pulse itself, so Pulse does not hold the port open
// for the pulse duration.
type PulseBox struct {
	conn io.ReadWriteCloser
}

// OpenPulseBox opens the named serial port at the box's fixed rate
func OpenPulseBox(port string) (*PulseBox, error) {
	conn, err := serial.OpenPort(&serial.Config{
		Name:        port,
		Baud:        115200,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrTriggerUnavailable, err)
	}
	return &PulseBox{conn: conn}, nil
}

// Pulse commands one TTL pulse of the given width
func (p *PulseBox) Pulse(width time.Duration) error {
	ms := width.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	if ms > 0xffff {
		return fmt.Errorf("pulse width %v too long for the box", width)
	}
	tel := encodeTelegram(cmdPulse, uint16(ms))
	if _, err := p.conn.Write(tel); err != nil {
		return err
	}
	ack := make([]byte, 1)
	if _, err := io.ReadFull(p.conn, ack); err != nil {
		return err
	}
	if ack[0] == telSOT {
		// verbose mode: the box echoes the telegram back before acking
		echo := make([]byte, len(tel))
		echo[0] = telSOT
		if _, err := io.ReadFull(p.conn, echo[1:]); err != nil {
			return err
		}
		if _, err := decodeTelegram(echo); err != nil {
			return fmt.Errorf("pulse box echo: %v", err)
		}
		if _, err := io.ReadFull(p.conn, ack); err != nil {
			return err
		}
	}
	if ack[0] != telAck {
		return fmt.Errorf("pulse box answered %#02x, want ACK", ack[0])
	}
	return nil
}

// Close releases the serial port
func (p *PulseBox) Close() error {
	return p.conn.Close()
}

func encodeTelegram(cmd byte, width uint16) []byte {
	payload := []byte{cmd, byte(width >> 8), byte(width)}
	sum := crc16(payload)
	tel := make([]byte, 0, len(payload)+4)
	tel = append(tel, telSOT)
	tel = append(tel, payload...)
	tel = append(tel, byte(sum>>8), byte(sum))
	tel = append(tel, telEOT)
	return tel
}

// decodeTelegram validates framing and CRC and returns the payload.  The
// box echoes telegrams back in verbose mode.
func decodeTelegram(tel []byte) ([]byte, error) {
	if len(tel) < 5 {
		return nil, fmt.Errorf("telegram too short: %d bytes", len(tel))
	}
	if tel[0] != telSOT || tel[len(tel)-1] != telEOT {
		return nil, fmt.Errorf("telegram framing bytes wrong")
	}
	payload := tel[1 : len(tel)-3]
	want := uint16(tel[len(tel)-3])<<8 | uint16(tel[len(tel)-2])
	if got := crc16(payload); got != want {
		return nil, fmt.Errorf("telegram crc mismatch: got %#04x want %#04x", got, want)
	}
	return payload, nil
}
