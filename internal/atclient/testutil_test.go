package atclient

import "io"

// loopbackPort is a fake UART: whatever the client Writes shows up on
// txReader, and whatever the test writes to rxWriter shows up on the
// client's Read calls. It lets tests script a fake modem's replies.
type loopbackPort struct {
	rx       *io.PipeReader
	rxWriter *io.PipeWriter
	tx       *io.PipeWriter
	txReader *io.PipeReader
}

func newLoopbackPort() *loopbackPort {
	rxR, rxW := io.Pipe()
	txR, txW := io.Pipe()
	return &loopbackPort{rx: rxR, rxWriter: rxW, tx: txW, txReader: txR}
}

func (p *loopbackPort) Read(b []byte) (int, error)  { return p.rx.Read(b) }
func (p *loopbackPort) Write(b []byte) (int, error) { return p.tx.Write(b) }
func (p *loopbackPort) Close() error {
	p.rxWriter.Close()
	p.txReader.Close()
	return nil
}

// sendFromModem writes a line as if the modem had sent it.
func (p *loopbackPort) sendFromModem(line string) {
	p.rxWriter.Write([]byte(line + "\r\n"))
}

// readLineFromClient reads one CR-terminated line the client
// transmitted (a "\r" terminator, per CommandStop).
func (p *loopbackPort) readLineFromClient() string {
	buf := make([]byte, 256)
	var line []byte
	for {
		n, err := p.txReader.Read(buf)
		if n > 0 {
			line = append(line, buf[:n]...)
			if line[len(line)-1] == '\r' {
				return string(line[:len(line)-1])
			}
		}
		if err != nil {
			return string(line)
		}
	}
}
