package atclient

// SetURCHandler registers fn to be invoked whenever a line arrives whose
// prefix matches prefix exactly at the start of the line. Only one
// handler may be registered per prefix; registering again replaces it.
func (c *Client) SetURCHandler(prefix string, fn URCHandlerFunc, ctx interface{}) {
	c.urcMu.Lock()
	defer c.urcMu.Unlock()
	c.urcHandlers[prefix] = urcHandler{fn: fn, ctx: ctx}
}

// RemoveURCHandler unregisters the handler for prefix, if any.
func (c *Client) RemoveURCHandler(prefix string) {
	c.urcMu.Lock()
	defer c.urcMu.Unlock()
	delete(c.urcHandlers, prefix)
}

// HasURCHandler reports whether prefix currently has a registered handler.
func (c *Client) HasURCHandler(prefix string) bool {
	c.urcMu.Lock()
	defer c.urcMu.Unlock()
	_, ok := c.urcHandlers[prefix]
	return ok
}
