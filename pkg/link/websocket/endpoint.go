package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Endpoint implements PacketReadWriter over served websocket
// connections, talking to one peer at a time. A new connection
// replaces the current one. Reads block until a peer is connected,
// writes without a peer are dropped.
type Endpoint struct {
	lock   sync.RWMutex
	peer   *peer
	peerCh chan *peer
	closed bool
}

type peer struct {
	conn *ReadWriter
	addr string
	once sync.Once
	done chan struct{}
}

func (p *peer) retire() {
	p.once.Do(func() {
		p.conn.Close()
		close(p.done)
	})
}

// NewEndpoint creates an Endpoint.
func NewEndpoint() *Endpoint {
	return &Endpoint{peerCh: make(chan *peer, 1)}
}

// ServeHTTP implements http.Handler performing websocket handshakes.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(e.serve).ServeHTTP(w, r)
}

// serve holds the handshaked connection open until it is retired.
// The websocket package closes the connection when the handler
// returns.
func (e *Endpoint) serve(conn *websocket.Conn) {
	pr := &peer{
		conn: New(conn),
		addr: conn.Request().RemoteAddr,
		done: make(chan struct{}),
	}
	e.lock.Lock()
	if e.closed {
		e.lock.Unlock()
		conn.Close()
		return
	}
	old := e.peer
	e.peer = pr
	select {
	case <-e.peerCh:
	default:
	}
	e.peerCh <- pr
	e.lock.Unlock()
	if old != nil {
		old.retire()
	}
	glog.Infof("peer connected: %v", pr.addr)
	<-pr.done
}

// ReadPacket implements PacketReader.
func (e *Endpoint) ReadPacket() ([]byte, error) {
	pr := e.current()
	for {
		if pr == nil {
			var ok bool
			if pr, ok = <-e.peerCh; !ok {
				return nil, io.EOF
			}
		}
		pkt, err := pr.conn.ReadPacket()
		if err == nil {
			return pkt, nil
		}
		e.drop(pr)
		pr = e.current()
	}
}

// WritePacket implements PacketWriter.
func (e *Endpoint) WritePacket(pkt []byte) error {
	pr := e.current()
	if pr == nil {
		return nil
	}
	return pr.conn.WritePacket(pkt)
}

// Close implements io.Closer. Pending reads return io.EOF and
// further connections are rejected.
func (e *Endpoint) Close() error {
	e.lock.Lock()
	if e.closed {
		e.lock.Unlock()
		return nil
	}
	e.closed = true
	pr := e.peer
	e.peer = nil
	close(e.peerCh)
	e.lock.Unlock()
	if pr != nil {
		pr.retire()
	}
	return nil
}

func (e *Endpoint) current() *peer {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.peer
}

func (e *Endpoint) drop(pr *peer) {
	e.lock.Lock()
	if e.peer == pr {
		e.peer = nil
	}
	e.lock.Unlock()
	pr.retire()
	glog.Infof("peer gone: %v", pr.addr)
}

// Server serves an Endpoint over HTTP.
type Server struct {
	Endpoint *Endpoint
	Listener net.Listener
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{Endpoint: NewEndpoint(), Listener: lis}, nil
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Handler: s.Endpoint}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	defer s.Endpoint.Close()
	err := srv.Serve(s.Listener)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
