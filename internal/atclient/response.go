package atclient

import (
	"strconv"
	"strings"
	"time"
)

func deadlineFrom(timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return time.Now().Add(timeout)
}

// ReadInt parses the next comma-delimited token as an integer.
func (c *Client) ReadInt() (int, error) {
	tok, err := c.nextToken()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, newStatus(KindAtError, "expected integer parameter")
	}
	return v, nil
}

// ReadString parses the next token as a (possibly quoted) string.
func (c *Client) ReadString(ignoreStopTag bool) (string, error) {
	tok, err := c.nextToken()
	if err != nil {
		if ignoreStopTag {
			return "", nil
		}
		return "", err
	}
	return unquote(tok), nil
}

// SkipParameters discards the next n tokens.
func (c *Client) SkipParameters(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.nextToken(); err != nil {
			return err
		}
	}
	return nil
}

// RemainingTokens returns the unparsed tokens left in the current
// response line, without consuming them.
func (c *Client) RemainingTokens() []string {
	if c.tokenIdx >= len(c.tokens) {
		return nil
	}
	return append([]string(nil), c.tokens[c.tokenIdx:]...)
}

func (c *Client) nextToken() (string, error) {
	if c.tokenIdx >= len(c.tokens) {
		return "", newStatus(KindAtError, "no more parameters in response")
	}
	tok := c.tokens[c.tokenIdx]
	c.tokenIdx++
	return tok, nil
}

// ResponseStop waits for the final OK / ERROR / +CME ERROR / +CMS ERROR
// line, recording a DeviceError on the client if one was seen.
func (c *Client) ResponseStop() error {
	deadline := deadlineFrom(c.timeout)
	for {
		line, err := c.nextNonURCLine(deadline)
		if err != nil {
			return err
		}
		if st, ok := parseFinalStatus(line); ok {
			c.lastDeviceErr = st.Device
			if st.Kind == KindOK {
				return nil
			}
			return st
		}
		// Anything else (e.g. a trailing data line we weren't expecting)
		// is ignored and we keep waiting for the terminator.
	}
}

// parseFinalStatus recognizes OK/ERROR/+CME ERROR/+CMS ERROR terminator
// lines.
func parseFinalStatus(line string) (*Status, bool) {
	switch {
	case line == "OK":
		return &Status{Kind: KindOK}, true
	case line == "ERROR":
		return newStatus(KindAtError, "ERROR"), true
	case strings.HasPrefix(line, "+CME ERROR:"):
		code, _ := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "+CME ERROR:")))
		return deviceErrorStatus("CME", code), true
	case strings.HasPrefix(line, "+CMS ERROR:"):
		code, _ := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "+CMS ERROR:")))
		return deviceErrorStatus("CMS", code), true
	}
	return nil, false
}
