package atclient

import (
	"fmt"
	"strconv"
	"strings"
)

// CommandStart begins a new command, writing prefix onto the UART. The
// caller must hold the transmit lock (Lock) first.
func (c *Client) CommandStart(prefix string) error {
	if !c.locked {
		return newStatus(KindNotLocked, "command_start called without Lock")
	}
	c.maybeWakeUp()
	c.firstParam = true
	return c.writeRaw(prefix)
}

func (c *Client) writeRaw(s string) error {
	if c.debugPrint {
		c.logger.Debugf("tx: %q", s)
	}
	_, err := c.port.Write([]byte(s))
	c.noteActivity()
	if err != nil {
		return newStatus(KindAtError, fmt.Sprintf("write failed: %v", err))
	}
	return nil
}

func (c *Client) separator() string {
	if c.firstParam {
		c.firstParam = false
		return "="
	}
	return ","
}

// WriteInt appends an integer parameter.
func (c *Client) WriteInt(v int) error {
	return c.writeRaw(c.separator() + strconv.Itoa(v))
}

// WriteString appends a string parameter, optionally quoted.
func (c *Client) WriteString(s string, quote bool) error {
	sep := c.separator()
	if quote {
		return c.writeRaw(sep + `"` + s + `"`)
	}
	return c.writeRaw(sep + s)
}

// WriteBytes appends a raw byte-string parameter (e.g. a binary UBX frame
// already hex-encoded by the caller).
func (c *Client) WriteBytes(b []byte) error {
	return c.writeRaw(c.separator() + string(b))
}

// CommandStop terminates the line with CR and does not wait for a
// response.
func (c *Client) CommandStop() error {
	return c.writeRaw("\r")
}

// WriteRawFrame writes frame directly onto the UART with no AT framing
// and does not wait for a response, for the rare binary protocol (a UBX
// message) multiplexed onto the same serial link as the AT commands.
// The caller must hold the transmit lock.
func (c *Client) WriteRawFrame(frame []byte) error {
	if !c.locked {
		return newStatus(KindNotLocked, "write_raw_frame called without Lock")
	}
	if c.debugPrint {
		c.logger.Debugf("tx raw frame: % x", frame)
	}
	_, err := c.port.Write(frame)
	c.noteActivity()
	if err != nil {
		return newStatus(KindAtError, fmt.Sprintf("write failed: %v", err))
	}
	return nil
}

// CommandStopReadResponse terminates the line and waits for the next
// solicited, non-URC response line.
func (c *Client) CommandStopReadResponse() error {
	if err := c.CommandStop(); err != nil {
		return err
	}
	return c.ResponseStart("")
}

// ResponseStart waits for a line beginning with prefix (or, if prefix is
// empty, any non-URC line), then makes its remaining comma-delimited
// parameters available to ReadInt/ReadString/SkipParameters.
func (c *Client) ResponseStart(prefix string) error {
	deadline := deadlineFrom(c.timeout)
	for {
		line, err := c.nextNonURCLine(deadline)
		if err != nil {
			return err
		}
		if prefix == "" {
			c.setTokens(line)
			return nil
		}
		if strings.HasPrefix(line, prefix) {
			c.setTokens(strings.TrimPrefix(line, prefix))
			return nil
		}
		if st, ok := parseFinalStatus(line); ok {
			c.lastDeviceErr = st.Device
			return st
		}
		// Stray line (echo, banner) while waiting for the expected
		// prefix: ignore and keep waiting, spec §4.2's parser must not
		// confuse it for the solicited response.
	}
}
