// Package atclient implements the AT command/response/URC engine of
// spec §4.2: a transactional command/response API layered over a byte
// stream whose incoming bytes interleave unsolicited result codes with
// solicited responses.
package atclient

import (
	"sync"
	"time"

	"github.com/ubxmodem/ubxmodem/internal/interfaces"
	"github.com/ubxmodem/ubxmodem/internal/logging"
	"github.com/ubxmodem/ubxmodem/internal/ringbuffer"
)

// DefaultTimeout is used for any transaction that doesn't call SetTimeout.
const DefaultTimeout = 10 * time.Second

// urcHandler pairs a registered callback with its opaque context, spec
// §3's "registry of URC handlers (prefix -> callback + opaque context)".
type urcHandler struct {
	fn  URCHandlerFunc
	ctx interface{}
}

// URCHandlerFunc is invoked (on the AT worker goroutine, never on the
// caller's goroutine) with the full raw line, matched prefix included.
type URCHandlerFunc func(ctx interface{}, line string)

// DeferredFunc is posted via Client.Callback and run on the AT worker
// goroutine.
type DeferredFunc func(ctx interface{})

type deferredCall struct {
	fn  DeferredFunc
	ctx interface{}
}

// Client is one AT client bound to a single UART (spec §3 "AtClient").
type Client struct {
	port   interfaces.Port
	rb     *ringbuffer.RingBuffer
	logger *logging.Logger

	// txMu is the transmit lock: it orders commands, and is the same lock
	// the background URC scanner takes before reading a line while idle,
	// which is how spec §4.2 "URC delivery is serialized against
	// transactions by the transmit lock" is realized here.
	txMu   sync.Mutex
	locked bool

	defaultTimeout time.Duration
	timeout        time.Duration
	deadline       time.Time

	firstParam bool
	assembler  []byte

	tokens   []string
	tokenIdx int

	lastDeviceErr *DeviceError
	debugPrint    bool

	urcMu       sync.Mutex
	urcHandlers map[string]urcHandler

	deferredCh chan deferredCall
	workerDone chan struct{}

	closeCh  chan struct{}
	closeMu  sync.Mutex
	closed   bool
	pumpDone chan struct{}
	scanDone chan struct{}

	wake wakeState
}

// New binds an AT client to port, starting the background byte pump, URC
// scanner and deferred-callback worker goroutines.
func New(port interfaces.Port, ringSize int, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if ringSize <= 0 {
		ringSize = 1024
	}
	c := &Client{
		port:           port,
		rb:             ringbuffer.New(ringSize),
		logger:         logger.WithComponent("atclient"),
		defaultTimeout: DefaultTimeout,
		timeout:        DefaultTimeout,
		urcHandlers:    make(map[string]urcHandler),
		deferredCh:     make(chan deferredCall, 32),
		workerDone:     make(chan struct{}),
		closeCh:        make(chan struct{}),
		pumpDone:       make(chan struct{}),
		scanDone:       make(chan struct{}),
	}
	c.wake.lastActivity = time.Now()
	go c.pumpLoop()
	go c.scanLoop()
	go c.workerLoop()
	return c
}

// Close stops the background goroutines and releases the port. It must
// only be called after every transaction has drained (spec §3 lifecycle).
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	close(c.closeCh)
	<-c.pumpDone
	<-c.scanDone
	close(c.deferredCh)
	<-c.workerDone
	return c.port.Close()
}

// pumpLoop is the analogue of the UART receive callback: it continuously
// moves bytes from the port into the ring buffer.
func (c *Client) pumpLoop() {
	defer close(c.pumpDone)
	buf := make([]byte, 256)
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}
		n, err := c.port.Read(buf)
		if n > 0 {
			// A ring buffer that refuses the write (full) simply drops
			// the bytes, matching spec §4.1: "overflows by refusing the
			// write". The parser resyncs on the next line boundary.
			c.rb.Add(buf[:n])
		}
		if err != nil {
			select {
			case <-c.closeCh:
				return
			default:
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// scanLoop is the idle-time URC dispatcher: it reads a line only while it
// holds the transmit lock itself (so never while a command holds it), and
// a line matching a registered URC prefix has its handler posted to the
// deferred-callback worker goroutine.
func (c *Client) scanLoop() {
	defer close(c.scanDone)
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}
		if !c.txMu.TryLock() {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		line, err := c.readLineLocked(time.Now().Add(15 * time.Millisecond))
		if err == nil && line != "" {
			if !c.dispatchIfURC(line) {
				c.logger.Debugf("dropped unsolicited line outside transaction: %q", line)
			}
		}
		c.txMu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
}

func (c *Client) workerLoop() {
	defer close(c.workerDone)
	for call := range c.deferredCh {
		call.fn(call.ctx)
	}
}

// Callback posts fn to run on the AT worker goroutine, so a URC handler
// never blocks the receive path while the user's code runs (spec §4.2
// "Deferred callbacks").
func (c *Client) Callback(fn DeferredFunc, ctx interface{}) {
	select {
	case c.deferredCh <- deferredCall{fn: fn, ctx: ctx}:
	default:
		c.logger.Warn("deferred callback queue full, dropping callback")
	}
}

// Lock acquires the transmit lock; it must precede any command.
func (c *Client) Lock() {
	c.txMu.Lock()
	c.locked = true
	c.lastDeviceErr = nil
	c.timeout = c.defaultTimeout
	c.firstParam = true
}

// Unlock releases the transmit lock and returns the outcome of the
// transaction that just ran under it.
func (c *Client) Unlock(txErr error) error {
	c.locked = false
	c.txMu.Unlock()
	return txErr
}

// SetTimeout overrides the default timeout for the current transaction.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SetDefaultTimeout changes the client-wide default applied at each Lock.
func (c *Client) SetDefaultTimeout(d time.Duration) {
	c.defaultTimeout = d
}

// SetDebugPrint toggles logging of every transmitted/received line.
func (c *Client) SetDebugPrint(on bool) {
	c.debugPrint = on
}

// DeviceErrorGet returns the last structured error recorded for the
// current (or most recently completed) transaction.
func (c *Client) DeviceErrorGet() *DeviceError {
	return c.lastDeviceErr
}

// Flush discards all buffered input, including anything not yet pulled
// into the line assembler.
func (c *Client) Flush() {
	c.rb.Reset()
	c.assembler = c.assembler[:0]
}
