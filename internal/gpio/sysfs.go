//go:build linux

// Package gpio implements the interfaces.Pin contract against Linux
// sysfs-gpio, using golang.org/x/sys/unix's epoll wrapper to block on
// VINT/edge transitions the way the AT client's pump loop blocks on the
// serial port (internal/atclient's goroutine-per-resource style, carried
// over from the teacher's uring control-plane goroutines).
package gpio

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ubxmodem/ubxmodem/internal/interfaces"
)

const sysfsRoot = "/sys/class/gpio"

// SysfsPin is an interfaces.Pin backed by /sys/class/gpio/gpioN.
type SysfsPin struct {
	line     int
	dir      interfaces.Direction
	polarity interfaces.Polarity

	valueFile *os.File
	epollFD   int
	exported  bool
}

// Open exports line and returns a Pin for it. Callers must call
// Configure before use.
func Open(line int) (*SysfsPin, error) {
	p := &SysfsPin{line: line, epollFD: -1}
	if err := p.export(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SysfsPin) export() error {
	if _, err := os.Stat(fmt.Sprintf("%s/gpio%d", sysfsRoot, p.line)); err == nil {
		p.exported = true
		return nil
	}
	f, err := os.OpenFile(sysfsRoot+"/export", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("gpio: open export: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(strconv.Itoa(p.line)); err != nil {
		return fmt.Errorf("gpio: export gpio%d: %w", p.line, err)
	}
	p.exported = true
	return nil
}

func (p *SysfsPin) pinPath(file string) string {
	return fmt.Sprintf("%s/gpio%d/%s", sysfsRoot, p.line, file)
}

func (p *SysfsPin) writeAttr(file, value string) error {
	f, err := os.OpenFile(p.pinPath(file), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("gpio: open gpio%d/%s: %w", p.line, file, err)
	}
	defer f.Close()
	_, err = f.WriteString(value)
	return err
}

// Configure sets direction, polarity and, for outputs, the initial level.
func (p *SysfsPin) Configure(dir interfaces.Direction, polarity interfaces.Polarity, initialActive bool) error {
	p.dir = dir
	p.polarity = polarity

	dirStr := "in"
	if dir == interfaces.DirectionOutput {
		if p.levelFor(initialActive) {
			dirStr = "high"
		} else {
			dirStr = "low"
		}
	}
	if err := p.writeAttr("direction", dirStr); err != nil {
		return err
	}
	if dir == interfaces.DirectionInput {
		if err := p.writeAttr("edge", "both"); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(p.pinPath("value"), os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("gpio: open gpio%d/value: %w", p.line, err)
	}
	p.valueFile = f

	if dir == interfaces.DirectionInput {
		fd, err := unix.EpollCreate1(0)
		if err != nil {
			f.Close()
			return fmt.Errorf("gpio: epoll_create1: %w", err)
		}
		event := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET | unix.EPOLLPRI, Fd: int32(f.Fd())}
		if err := unix.EpollCtl(fd, unix.EPOLL_CTL_ADD, int(f.Fd()), &event); err != nil {
			unix.Close(fd)
			f.Close()
			return fmt.Errorf("gpio: epoll_ctl: %w", err)
		}
		p.epollFD = fd
	}
	return nil
}

// levelFor returns the raw logic level ("1") for a polarity-adjusted
// asserted state.
func (p *SysfsPin) levelFor(active bool) bool {
	if p.polarity == interfaces.ActiveLow {
		return !active
	}
	return active
}

// Set drives an output pin to the given asserted state.
func (p *SysfsPin) Set(active bool) error {
	if p.valueFile == nil {
		return fmt.Errorf("gpio: gpio%d not configured", p.line)
	}
	v := "0"
	if p.levelFor(active) {
		v = "1"
	}
	if _, err := p.valueFile.WriteAt([]byte(v), 0); err != nil {
		return fmt.Errorf("gpio: write gpio%d value: %w", p.line, err)
	}
	return nil
}

// Get reads the current polarity-adjusted asserted state.
func (p *SysfsPin) Get() (bool, error) {
	if p.valueFile == nil {
		return false, fmt.Errorf("gpio: gpio%d not configured", p.line)
	}
	buf := make([]byte, 1)
	if _, err := p.valueFile.ReadAt(buf, 0); err != nil {
		return false, fmt.Errorf("gpio: read gpio%d value: %w", p.line, err)
	}
	raw := buf[0] == '1'
	if p.polarity == interfaces.ActiveLow {
		return !raw, nil
	}
	return raw, nil
}

// WaitEdge blocks until the pin reaches the asserted state or timeout
// elapses. It polls the sysfs value after every epoll wakeup since a
// single edge notification doesn't guarantee the level we want.
func (p *SysfsPin) WaitEdge(active bool, timeout time.Duration) (bool, error) {
	if p.epollFD < 0 {
		return false, fmt.Errorf("gpio: gpio%d is not an input", p.line)
	}
	deadline := time.Now().Add(timeout)
	events := make([]unix.EpollEvent, 1)
	for {
		cur, err := p.Get()
		if err != nil {
			return false, err
		}
		if cur == active {
			return true, nil
		}
		remaining := time.Until(deadline)
		if timeout > 0 && remaining <= 0 {
			return false, nil
		}
		ms := -1
		if timeout > 0 {
			ms = int(remaining / time.Millisecond)
			if ms < 1 {
				ms = 1
			}
		}
		n, err := unix.EpollWait(p.epollFD, events, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false, fmt.Errorf("gpio: epoll_wait gpio%d: %w", p.line, err)
		}
		if n == 0 {
			return false, nil
		}
	}
}

// Close releases the sysfs file and epoll descriptor, but does not
// unexport the line (sharing it across process restarts is common on
// embedded boards).
func (p *SysfsPin) Close() error {
	if p.epollFD >= 0 {
		unix.Close(p.epollFD)
		p.epollFD = -1
	}
	if p.valueFile != nil {
		return p.valueFile.Close()
	}
	return nil
}
