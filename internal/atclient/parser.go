package atclient

import (
	"strings"
	"time"
)

// readLineLocked blocks (the caller must hold txMu) pulling bytes out of
// the ring buffer until a full CRLF-terminated line is assembled or
// deadline passes. Blank separator lines are swallowed.
func (c *Client) readLineLocked(deadline time.Time) (string, error) {
	buf := make([]byte, 128)
	for {
		if idx := indexNewline(c.assembler); idx >= 0 {
			raw := c.assembler[:idx]
			c.assembler = c.assembler[idx+1:]
			line := strings.TrimRight(string(raw), "\r\n")
			if line == "" {
				continue
			}
			if c.debugPrint {
				c.logger.Debugf("rx: %q", line)
			}
			return line, nil
		}
		n := c.rb.Read(buf)
		if n > 0 {
			c.assembler = append(c.assembler, buf[:n]...)
			continue
		}
		if time.Now().After(deadline) {
			return "", newStatus(KindTimeout, "timed out waiting for response")
		}
		time.Sleep(1 * time.Millisecond)
	}
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}

// dispatchIfURC checks line against every registered URC prefix (longest
// match wins so e.g. "+CEDRXP:" beats a hypothetical "+CE" handler) and,
// on a match, posts the handler onto the deferred-callback worker. It
// returns whether a match was found.
func (c *Client) dispatchIfURC(line string) bool {
	c.urcMu.Lock()
	var bestPrefix string
	var best urcHandler
	found := false
	for prefix, h := range c.urcHandlers {
		if strings.HasPrefix(line, prefix) {
			if !found || len(prefix) > len(bestPrefix) {
				bestPrefix = prefix
				best = h
				found = true
			}
		}
	}
	c.urcMu.Unlock()
	if !found {
		return false
	}
	handler := best
	payload := line
	c.Callback(func(ctx interface{}) {
		handler.fn(ctx, payload)
	}, handler.ctx)
	return true
}

// nextNonURCLine keeps reading and dispatching URC lines until it finds
// one that isn't a URC, or the deadline passes.
func (c *Client) nextNonURCLine(deadline time.Time) (string, error) {
	for {
		line, err := c.readLineLocked(deadline)
		if err != nil {
			return "", err
		}
		if c.dispatchIfURC(line) {
			continue
		}
		return line, nil
	}
}

// splitCSV splits a comma-delimited parameter list, honoring double-quoted
// strings so a comma inside a quoted value isn't treated as a separator.
func splitCSV(s string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
			cur.WriteByte(ch)
		case ch == ',' && !inQuotes:
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	tokens = append(tokens, cur.String())
	return tokens
}

func (c *Client) setTokens(remainder string) {
	remainder = strings.TrimPrefix(remainder, " ")
	if remainder == "" {
		c.tokens = nil
	} else {
		c.tokens = splitCSV(remainder)
	}
	c.tokenIdx = 0
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
