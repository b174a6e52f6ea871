package stream

import (
	"context"
	"io"
	"io/ioutil"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	rw := New(local)
	go remote.Write([]byte{0x81, 3, 2, 4, 2})
	chunk, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x81, 3, 2, 4, 2}, chunk)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 2)
		io.ReadFull(remote, buf)
		done <- buf
	}()
	require.NoError(t, rw.WritePacket([]byte{0xaa, 0xbb}))
	require.Equal(t, []byte{0xaa, 0xbb}, <-done)

	require.NoError(t, rw.Close())
	_, err = rw.ReadPacket()
	require.Error(t, err)
}

func readAll(t *testing.T, rw *AcceptReadWriter, n int) []byte {
	var got []byte
	for len(got) < n {
		chunk, err := rw.ReadPacket()
		require.NoError(t, err)
		got = append(got, chunk...)
	}
	return got
}

func TestAcceptReadWriter(t *testing.T) {
	rw, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- rw.Run(ctx) }()

	// no peer yet, writes are dropped
	require.NoError(t, rw.WritePacket([]byte{1}))

	addr := rw.Listener.Addr().String()
	conn1, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = conn1.Write([]byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, readAll(t, rw, 2))

	require.NoError(t, rw.WritePacket([]byte{0xaa, 0xbb}))
	buf := make([]byte, 2)
	_, err = io.ReadFull(conn1, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb}, buf)

	// a new peer takes over and the old connection is closed
	conn2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn2.Close()
	conn1.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = ioutil.ReadAll(conn1)
	require.NoError(t, err)
	_, err = conn2.Write([]byte{3, 4})
	require.NoError(t, err)
	require.Equal(t, []byte{3, 4}, readAll(t, rw, 2))

	cancel()
	require.Equal(t, context.Canceled, <-runErr)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestDialErrors(t *testing.T) {
	for _, url := range []string{
		"unknown://localhost:9999",
		"serial://",
		"serial:///dev/ttyUSB0?baud=fast",
	} {
		_, err := Dial(url)
		require.Errorf(t, err, "url %q", url)
	}
}
