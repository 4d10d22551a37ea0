//go:build linux

// Package serialport adapts a github.com/daedaluz/goserial port to the
// interfaces.Port the AT client reads and writes, configured the way
// every u-blox UART wants it: 115200 8N1, raw mode, no modem-line
// handshaking other than what the power state machine drives explicitly
// through internal/gpio.
package serialport

import (
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"

	"github.com/ubxmodem/ubxmodem/internal/interfaces"
)

// Config describes how to open and configure the modem's UART.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultConfig is 115200 8N1 with a 250ms read poll, matching the AT
// client's pump loop which re-checks for shutdown on every Read.
func DefaultConfig(device string) Config {
	return Config{Device: device, BaudRate: 115200, ReadTimeout: 250 * time.Millisecond}
}

var baudRates = map[int]serial.CFlag{
	9600:    serial.B9600,
	115200:  serial.B115200,
	1152000: serial.B1152000,
}

// Port wraps a *serial.Port to satisfy interfaces.Port.
type Port struct {
	p *serial.Port
}

// Open opens and configures the UART at cfg.Device.
func Open(cfg Config) (*Port, error) {
	opts := serial.NewOptions().SetReadTimeout(cfg.ReadTimeout)
	p, err := serial.Open(cfg.Device, opts)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Device, err)
	}

	baud, ok := baudRates[cfg.BaudRate]
	if !ok {
		p.Close()
		return nil, fmt.Errorf("serialport: unsupported baud rate %d", cfg.BaudRate)
	}

	attrs, err := p.GetAttr2()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("serialport: get attrs: %w", err)
	}
	attrs.MakeRaw()
	attrs.SetSpeed(baud)
	attrs.Cflag |= serial.CREAD | serial.CLOCAL
	if err := p.SetAttr2(serial.TCSANOW, attrs); err != nil {
		p.Close()
		return nil, fmt.Errorf("serialport: set attrs: %w", err)
	}

	return &Port{p: p}, nil
}

func (p *Port) Read(b []byte) (int, error)  { return p.p.Read(b) }
func (p *Port) Write(b []byte) (int, error) { return p.p.Write(b) }
func (p *Port) Close() error                { return p.p.Close() }

var _ interfaces.Port = (*Port)(nil)
