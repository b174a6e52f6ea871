package stream

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"
)

// AcceptReadWriter implements PacketReadWriter over a listener,
// talking to one peer at a time. A new connection replaces the
// current one. Reads block until a peer is connected, writes
// without a peer are dropped.
type AcceptReadWriter struct {
	Listener net.Listener

	lock   sync.RWMutex
	conn   net.Conn
	connCh chan net.Conn
}

// NewAcceptReadWriter creates an AcceptReadWriter over a listener.
func NewAcceptReadWriter(lis net.Listener) *AcceptReadWriter {
	return &AcceptReadWriter{Listener: lis, connCh: make(chan net.Conn, 1)}
}

// Listen creates an AcceptReadWriter listening on addr.
func Listen(addr string) (*AcceptReadWriter, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewAcceptReadWriter(lis), nil
}

// Run implements Runnable. It accepts connections until the context
// is done or the listener fails.
func (p *AcceptReadWriter) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		p.Listener.Close()
	}()
	defer p.retireAll()
	for {
		conn, err := p.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		glog.Infof("peer connected: %v", conn.RemoteAddr())
		p.replace(conn)
	}
}

// ReadPacket implements PacketReader.
func (p *AcceptReadWriter) ReadPacket() ([]byte, error) {
	conn := p.current()
	for {
		if conn == nil {
			var ok bool
			if conn, ok = <-p.connCh; !ok {
				return nil, io.EOF
			}
		}
		buf := make([]byte, readBufSize)
		n, err := conn.Read(buf)
		if err == nil {
			return buf[:n], nil
		}
		p.retire(conn)
		conn = p.current()
	}
}

// WritePacket implements PacketWriter.
func (p *AcceptReadWriter) WritePacket(pkt []byte) error {
	conn := p.current()
	if conn == nil {
		return nil
	}
	_, err := conn.Write(pkt)
	return err
}

func (p *AcceptReadWriter) current() net.Conn {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.conn
}

func (p *AcceptReadWriter) replace(conn net.Conn) {
	p.lock.Lock()
	old := p.conn
	p.conn = conn
	p.lock.Unlock()
	if old != nil {
		old.Close()
	}
	select {
	case <-p.connCh:
	default:
	}
	p.connCh <- conn
}

func (p *AcceptReadWriter) retire(conn net.Conn) {
	p.lock.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.lock.Unlock()
	conn.Close()
	glog.Infof("peer gone: %v", conn.RemoteAddr())
}

func (p *AcceptReadWriter) retireAll() {
	p.lock.Lock()
	conn := p.conn
	p.conn = nil
	p.lock.Unlock()
	if conn != nil {
		conn.Close()
	}
	close(p.connCh)
}
