package host

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcu.go/pkg/kernel"
	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// captureWriter collects written frames and signals each write.
type captureWriter struct {
	lock   sync.Mutex
	err    error
	frames [][]byte
	wrote  chan struct{}
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{wrote: make(chan struct{}, 16)}
}

func (w *captureWriter) WritePacket(pkt []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, append([]byte(nil), pkt...))
	select {
	case w.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (w *captureWriter) fail(err error) {
	w.lock.Lock()
	w.err = err
	w.lock.Unlock()
}

func (w *captureWriter) take(t *testing.T) []wire.Message {
	w.lock.Lock()
	defer w.lock.Unlock()
	var msgs []wire.Message
	var parser link.Parser
	for _, frame := range w.frames {
		for _, b := range frame {
			pr := parser.Parse(b)
			require.Zero(t, pr.Fault)
			if pr.Payload != nil {
				msg, err := wire.Decode(pr.Payload)
				require.NoError(t, err)
				msgs = append(msgs, msg)
			}
		}
	}
	w.frames = nil
	return msgs
}

// feed hands a controller message to the client as a decoded frame
// payload, the way the pump would.
func feed(c *Client, msg wire.Message) {
	c.HandlePayload(context.Background(), msg.Bytes())
}

func ack(c *Client, code byte) {
	feed(c, &wire.ReceptionCode{Code: code})
}

func TestClientDo(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	p := c.SendCommand(1, 2, 3, true)
	require.True(t, wire.ReturnSeq(p.ReturnCode()).IsValid())

	msgs := out.take(t)
	require.Len(t, msgs, 1)
	cmd, ok := msgs[0].(*wire.OneOffModuleCommand)
	require.True(t, ok)
	require.Equal(t, byte(1), cmd.ModuleType)
	require.Equal(t, byte(2), cmd.ModuleID)
	require.Equal(t, byte(3), cmd.Command)
	require.True(t, cmd.Noblock)
	require.Equal(t, p.ReturnCode(), cmd.ReturnCode)

	select {
	case err := <-p.Done():
		t.Fatalf("outcome before the ack: %v", err)
	default:
	}

	ack(c, p.ReturnCode())
	require.NoError(t, p.Wait(context.Background()))
}

func TestClientCommands(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	rp := c.SendRepeated(1, 2, 3, true, 50000)
	dp := c.SendDequeue(1, 2)
	lp := c.SendLocks(false, true)
	c.Reset()
	c.Identify()
	c.IdentifyModules()
	c.EnableKeepalive()

	msgs := out.take(t)
	require.Len(t, msgs, 7)

	rep, ok := msgs[0].(*wire.RepeatedModuleCommand)
	require.True(t, ok)
	require.Equal(t, byte(3), rep.Command)
	require.Equal(t, uint32(50000), rep.CycleDelay)
	require.Equal(t, rp.ReturnCode(), rep.ReturnCode)

	deq, ok := msgs[1].(*wire.DequeueModuleCommand)
	require.True(t, ok)
	require.Equal(t, byte(1), deq.ModuleType)
	require.Equal(t, byte(2), deq.ModuleID)
	require.Equal(t, dp.ReturnCode(), deq.ReturnCode)

	locks, ok := msgs[2].(*wire.KernelParameters)
	require.True(t, ok)
	require.False(t, locks.ActionLock)
	require.True(t, locks.TTLLock)
	require.Equal(t, lp.ReturnCode(), locks.ReturnCode)

	wantCommands := []byte{
		kernel.CommandResetController,
		kernel.CommandIdentifyController,
		kernel.CommandIdentifyModules,
		kernel.CommandKeepAlive,
	}
	for i, want := range wantCommands {
		kc, ok := msgs[3+i].(*wire.KernelCommand)
		require.True(t, ok)
		require.Equal(t, want, kc.Command)
		require.True(t, wire.ReturnSeq(kc.ReturnCode).IsValid())
	}
}

func TestClientLostFrame(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	p1 := c.SendCommand(1, 1, 2, false)
	p2 := c.SendKernelCommand(kernel.CommandIdentifyController)

	// the ack of the later send declares the earlier one lost
	ack(c, p2.ReturnCode())
	require.Equal(t, ErrNoReply, <-p1.Done())
	require.NoError(t, <-p2.Done())
}

func TestClientUnmatchedAck(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	p := c.SendCommand(1, 1, 2, false)
	ack(c, byte(wire.ReturnSeq(p.ReturnCode()).Next()))
	select {
	case err := <-p.Done():
		t.Fatalf("stray ack resolved the pending: %v", err)
	default:
	}

	ack(c, p.ReturnCode())
	require.NoError(t, <-p.Done())
}

func TestClientSendError(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	errDown := errors.New("wire down")
	out.fail(errDown)
	p := c.SendCommand(1, 1, 2, false)
	require.Equal(t, errDown, <-p.Done())

	// the failed send never joined the pending list
	out.fail(nil)
	ack(c, p.ReturnCode())
	select {
	case err := <-p.Done():
		t.Fatalf("failed send was tracked: %v", err)
	default:
	}
}

func TestClientUntrackedSend(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	require.NoError(t, c.Send(&wire.KernelCommand{Command: kernel.CommandKeepAlive}))
	msgs := out.take(t)
	require.Len(t, msgs, 1)
	kc, ok := msgs[0].(*wire.KernelCommand)
	require.True(t, ok)
	require.Zero(t, kc.ReturnCode)
}

func TestClientDoUnstampable(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	// a controller-side message carries no return code, so it goes
	// out untracked and resolves at once
	p := c.Do(&wire.KernelState{Command: kernel.CommandReceiveData, Event: kernel.StatusSetupComplete})
	require.Zero(t, p.ReturnCode())
	require.NoError(t, <-p.Done())
	require.Len(t, out.take(t), 1)
}

func TestClientReports(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	feed(c, &wire.ModuleState{ModuleType: 1, ModuleID: 1, Command: 4, Event: 54})
	feed(c, &wire.ControllerIdentification{ID: 42})

	require.Equal(t, &wire.ModuleState{ModuleType: 1, ModuleID: 1, Command: 4, Event: 54}, <-c.Reports())
	require.Equal(t, &wire.ControllerIdentification{ID: 42}, <-c.Reports())

	// an undecodable payload is dropped
	c.HandlePayload(context.Background(), []byte{0xc8})
	select {
	case msg := <-c.Reports():
		t.Fatalf("unexpected report %v", msg)
	default:
	}
}

func TestClientReportsOverflow(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	// feeding far past the buffer must neither block nor starve the
	// newest report
	for i := 0; i < 100; i++ {
		feed(c, &wire.ControllerIdentification{ID: byte(i)})
	}
	var last wire.Message
drain:
	for {
		select {
		case msg := <-c.Reports():
			last = msg
		default:
			break drain
		}
	}
	require.Equal(t, &wire.ControllerIdentification{ID: 99}, last)
}

func TestClientSendParameters(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)

	params := struct {
		PulseDuration   uint32
		AveragePoolSize uint8
	}{2000, 3}
	p, err := c.SendParameters(1, 2, params)
	require.NoError(t, err)

	msgs := out.take(t)
	require.Len(t, msgs, 1)
	mp, ok := msgs[0].(*wire.ModuleParameters)
	require.True(t, ok)
	require.Equal(t, byte(1), mp.ModuleType)
	require.Equal(t, byte(2), mp.ModuleID)
	require.Equal(t, p.ReturnCode(), mp.ReturnCode)
	require.Equal(t, []byte{0xd0, 0x07, 0x00, 0x00, 0x03}, mp.Data)

	_, err = c.SendParameters(1, 2, "not fixed size")
	require.Error(t, err)
	require.Empty(t, out.take(t))
}

type chanReader struct {
	ch chan []byte
}

func (r *chanReader) ReadPacket() ([]byte, error) {
	chunk, ok := <-r.ch
	if !ok {
		return nil, io.EOF
	}
	return chunk, nil
}

func frame(t *testing.T, msg wire.Message) []byte {
	pkt, err := link.EncodeFrame(msg.Bytes())
	require.NoError(t, err)
	return pkt
}

func TestClientPump(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)
	p := c.SendCommand(1, 1, 2, false)

	in := &chanReader{ch: make(chan []byte, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan error, 1)
	go func() { doneCh <- c.Pump(in).Run(ctx) }()

	in.ch <- frame(t, &wire.ReceptionCode{Code: p.ReturnCode()})
	in.ch <- frame(t, &wire.ModuleState{ModuleType: 1, ModuleID: 1, Command: 2, Event: 2})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, p.Wait(waitCtx))
	select {
	case msg := <-c.Reports():
		require.Equal(t, &wire.ModuleState{ModuleType: 1, ModuleID: 1, Command: 2, Event: 2}, msg)
	case <-waitCtx.Done():
		t.Fatal("report not pumped")
	}

	cancel()
	require.Equal(t, context.Canceled, <-doneCh)
	close(in.ch)
}

func TestKeepaliveFeeder(t *testing.T) {
	out := newCaptureWriter()
	c := NewClient(out)
	f := &KeepaliveFeeder{Client: c, Interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan error, 1)
	go func() { doneCh <- f.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case <-out.wrote:
		case <-deadline:
			t.Fatal("keepalive ticks missing")
		}
	}
	cancel()
	require.Equal(t, context.Canceled, <-doneCh)

	msgs := out.take(t)
	require.True(t, len(msgs) >= 2)
	for _, msg := range msgs {
		kc, ok := msg.(*wire.KernelCommand)
		require.True(t, ok)
		require.Equal(t, kernel.CommandKeepAlive, kc.Command)
		require.Zero(t, kc.ReturnCode)
	}
}
