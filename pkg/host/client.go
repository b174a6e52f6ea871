// Package host is the PC-side counterpart of a controller: it frames
// and sequences outgoing messages, matches reception acks against
// pending sends and streams controller-initiated reports.
package host

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/link"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// Pending tracks one acknowledged send until its reception ack
// arrives.
type Pending struct {
	returnCode byte
	resultCh   chan error
	next       *Pending
}

// ReturnCode returns the code stamped into the tracked message, zero
// when the message could not carry one.
func (p *Pending) ReturnCode() byte {
	return p.returnCode
}

// Done returns the chan delivering the outcome: nil once the ack
// arrives, ErrNoReply when a later ack overtakes it, or the send
// error.
func (p *Pending) Done() <-chan error {
	return p.resultCh
}

// Wait blocks for the outcome.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case err := <-p.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client drives one controller over a frame transport. Feed the
// receive direction by running Pump, or by handing frame payloads to
// HandlePayload directly.
type Client struct {
	out     link.PacketWriter
	reports chan wire.Message

	lock sync.Mutex
	seq  wire.ReturnSeq
	head *Pending
	tail *Pending
}

// NewClient creates a client writing frames to out.
func NewClient(out link.PacketWriter) *Client {
	return &Client{
		out:     out,
		reports: make(chan wire.Message, 16),
		seq:     wire.NewReturnSeq(),
	}
}

// Pump creates the receive pump feeding this client from a transport
// reader. Run it alongside the program.
func (c *Client) Pump(in link.PacketReader) *link.Pump {
	p := link.NewPump(in, c)
	p.Faults = c
	return p
}

// Reports streams decoded controller-initiated messages: data,
// state and identification reports. Unread reports age out oldest
// first when the buffer fills.
func (c *Client) Reports() <-chan wire.Message {
	return c.reports
}

// Send transmits msg as-is, without ack tracking. A message carrying
// return code zero asks the controller for no reception ack.
func (c *Client) Send(msg wire.Message) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.send(msg)
}

// Do stamps the next return code into msg, sends it and tracks the
// reception ack. A message that cannot carry a return code is sent
// untracked and resolves immediately.
func (c *Client) Do(msg wire.Message) *Pending {
	p := &Pending{resultCh: make(chan error, 1)}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq = c.seq.Next()
	p.returnCode = byte(c.seq)
	if !stampReturnCode(msg, p.returnCode) {
		p.returnCode = 0
	}
	if err := c.send(msg); err != nil {
		p.resultCh <- err
		return p
	}
	if p.returnCode == 0 {
		p.resultCh <- nil
		return p
	}
	if c.head == nil {
		c.head = p
	} else {
		c.tail.next = p
	}
	c.tail = p
	return p
}

func (c *Client) send(msg wire.Message) error {
	frame, err := link.EncodeFrame(msg.Bytes())
	if err != nil {
		return err
	}
	return c.out.WritePacket(frame)
}

// HandlePayload implements link.PayloadHandler: one validated frame
// payload from the controller.
func (c *Client) HandlePayload(ctx context.Context, payload []byte) {
	msg, err := wire.Decode(payload)
	if err != nil {
		glog.Warningf("drop undecodable frame: %v", err)
		return
	}
	if ack, ok := msg.(*wire.ReceptionCode); ok {
		c.settle(ack.Code)
		return
	}
	select {
	case c.reports <- msg:
	default:
		// the pump must not stall on an idle consumer: drop the
		// oldest report to keep room for this one
		select {
		case <-c.reports:
		default:
		}
		select {
		case c.reports <- msg:
		default:
		}
		glog.V(1).Info("report buffer full, dropped oldest")
	}
}

// HandleFault implements link.FaultHandler.
func (c *Client) HandleFault(ctx context.Context, codecStatus byte) {
	glog.Warningf("frame fault, codec status %d", codecStatus)
}

// settle resolves the pending send matching the acked return code.
// Pendings queued before the match never got their ack and settle
// with ErrNoReply; an unmatched code resolves nothing.
func (c *Client) settle(code byte) {
	c.lock.Lock()
	head := c.head
	curr := c.head
	for ; curr != nil; curr = curr.next {
		if curr.returnCode == code {
			if c.head = curr.next; c.head == nil {
				c.tail = nil
			}
			curr.next = nil
			break
		}
	}
	c.lock.Unlock()
	if curr == nil {
		glog.V(1).Infof("unmatched reception code %d", code)
		return
	}
	for ; head != curr; head = head.next {
		head.resultCh <- ErrNoReply
	}
	curr.resultCh <- nil
}

func stampReturnCode(msg wire.Message, code byte) bool {
	switch m := msg.(type) {
	case *wire.RepeatedModuleCommand:
		m.ReturnCode = code
	case *wire.OneOffModuleCommand:
		m.ReturnCode = code
	case *wire.DequeueModuleCommand:
		m.ReturnCode = code
	case *wire.KernelCommand:
		m.ReturnCode = code
	case *wire.ModuleParameters:
		m.ReturnCode = code
	case *wire.KernelParameters:
		m.ReturnCode = code
	default:
		return false
	}
	return true
}
