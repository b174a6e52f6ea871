package link

import (
	"context"
)

// PayloadHandler is called with each validated frame payload.
type PayloadHandler interface {
	HandlePayload(context.Context, []byte)
}

// HandlePayloadFunc is the func form of PayloadHandler.
type HandlePayloadFunc func(context.Context, []byte)

// HandlePayload implements PayloadHandler.
func (f HandlePayloadFunc) HandlePayload(ctx context.Context, payload []byte) {
	f(ctx, payload)
}

// FaultHandler is called with the codec status of each framing fault.
type FaultHandler interface {
	HandleFault(context.Context, byte)
}

// HandleFaultFunc is the func form of FaultHandler.
type HandleFaultFunc func(context.Context, byte)

// HandleFault implements FaultHandler.
func (f HandleFaultFunc) HandleFault(ctx context.Context, codecStatus byte) {
	f(ctx, codecStatus)
}

// Pump drains the receive direction of a transport, recovers frames
// and hands the payloads (and faults) over.
type Pump struct {
	In      PacketReader
	Handler PayloadHandler
	Faults  FaultHandler

	parser Parser
}

// NewPump creates a Pump over a transport reader.
func NewPump(in PacketReader, handler PayloadHandler) *Pump {
	return &Pump{In: in, Handler: handler}
}

// Run implements Runnable.
func (p *Pump) Run(ctx context.Context) error {
	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.readLoop(subCtx, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				p.apply(ctx, p.parser.Parse(b))
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pump) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	for {
		chunk, err := p.In.ReadPacket()
		if err != nil {
			errCh <- err
			return
		}
		select {
		case chunkCh <- chunk:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pump) apply(ctx context.Context, pr ParseResult) {
	if pr.Fault != 0 {
		if h := p.Faults; h != nil {
			h.HandleFault(ctx, pr.Fault)
		}
	}
	if pr.Payload != nil {
		if h := p.Handler; h != nil {
			h.HandlePayload(ctx, pr.Payload)
		}
	}
}
