package mqtt

import (
	"context"
	"io"
)

// ReadWriter implements PacketReadWriter. Each packet travels as one
// MQTT message carrying a complete frame.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 1)}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForController sets topics using default convention for the
// controller runtime:
// SubTopic = id/cmd
// PubTopic = id/msg
func (p *ReadWriter) ForController(id string) *ReadWriter {
	return p.WithTopics(id+"/cmd", id+"/msg")
}

// ForConnector sets topics using default convention for the host side:
// SubTopic = id/msg
// PubTopic = id/cmd
func (p *ReadWriter) ForConnector(id string) *ReadWriter {
	return p.WithTopics(id+"/msg", id+"/cmd")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	// unsubscribe before closing so a late dispatch cannot hit the
	// closed channel
	defer close(p.packetCh)
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	p.packetCh <- payload
}
