package stream

import (
	"io"
)

const readBufSize = 256

// ReadWriter implements PacketReadWriter over a byte stream.
// Frames are self-delimiting on the wire, so chunks carry no
// boundaries here: ReadPacket returns whatever the stream yields
// and the receiving parser recovers the frames.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	buf := make([]byte, readBufSize)
	n, err := p.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	_, err := p.Write(pkt)
	return err
}

// Close closes the underlying stream if it supports closing.
func (p *ReadWriter) Close() error {
	if c, ok := p.ReadWriter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
