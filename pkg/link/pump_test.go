package link

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type chunkReader struct {
	ch chan []byte
}

func newChunkReader() *chunkReader {
	return &chunkReader{ch: make(chan []byte, 16)}
}

func (r *chunkReader) ReadPacket() ([]byte, error) {
	chunk, ok := <-r.ch
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

func TestPumpRun(t *testing.T) {
	in := newChunkReader()
	payloadCh := make(chan []byte, 16)
	faultCh := make(chan byte, 16)

	pump := NewPump(in, HandlePayloadFunc(func(_ context.Context, payload []byte) {
		payloadCh <- payload
	}))
	pump.Faults = HandleFaultFunc(func(_ context.Context, code byte) {
		faultCh <- code
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- pump.Run(context.Background())
	}()

	frame1, err := EncodeFrame([]byte{4, 0, 2})
	require.NoError(t, err)
	frame2, err := EncodeFrame([]byte{11, 7})
	require.NoError(t, err)

	// one frame split across chunks, garbage, a corrupted frame,
	// then a clean one in a single chunk
	in.ch <- frame1[:4]
	in.ch <- frame1[4:]
	in.ch <- []byte{0x00, 0x42}
	in.ch <- corruptFrame([]byte{10, 2, 1}, 2, 0x55)
	in.ch <- frame2

	require.Equal(t, []byte{4, 0, 2}, <-payloadCh)
	require.Equal(t, CodecCRCMismatch, <-faultCh)
	require.Equal(t, []byte{11, 7}, <-payloadCh)

	close(in.ch)
	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on reader EOF")
	}
}

func TestPumpCancel(t *testing.T) {
	in := newChunkReader()
	pump := NewPump(in, HandlePayloadFunc(func(context.Context, []byte) {}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- pump.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on cancel")
	}
	close(in.ch)
}
