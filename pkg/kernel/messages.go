package kernel

import (
	"context"

	"github.com/robotalks/mcu.go/pkg/framework"
)

// PayloadMsg carries one received frame payload into the loop.
type PayloadMsg struct {
	Payload []byte
}

// NewMessage implements framework.Message.
func (m *PayloadMsg) NewMessage() framework.Message {
	return &PayloadMsg{}
}

// FaultMsg carries a framing fault into the loop.
type FaultMsg struct {
	CodecStatus byte
}

// NewMessage implements framework.Message.
func (m *FaultMsg) NewMessage() framework.Message {
	return &FaultMsg{}
}

// HandlePayload implements link.PayloadHandler. It runs on the pump
// goroutine and posts the payload into the loop owning the kernel.
func (k *Kernel) HandlePayload(ctx context.Context, payload []byte) {
	lc := framework.LoopCtlFrom(ctx)
	lc.PostMessage(&PayloadMsg{Payload: payload})
	lc.TriggerNext()
}

// HandleFault implements link.FaultHandler.
func (k *Kernel) HandleFault(ctx context.Context, codecStatus byte) {
	lc := framework.LoopCtlFrom(ctx)
	lc.PostMessage(&FaultMsg{CodecStatus: codecStatus})
	lc.TriggerNext()
}
