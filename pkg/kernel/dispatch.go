package kernel

import (
	"github.com/golang/glog"

	"github.com/robotalks/mcu.go/pkg/module"
	"github.com/robotalks/mcu.go/pkg/wire"
)

// Dispatch decodes one received payload and performs the host request
// it carries. A nonzero return code is acknowledged before the
// request is acted on.
func (k *Kernel) Dispatch(payload []byte) {
	msg, err := k.port.Decode(payload)
	if err != nil {
		if up, ok := err.(*wire.UnknownProtocolError); ok {
			k.sendData(StatusInvalidMessageProtocol, wire.PrototypeOneUint8, up.Code)
			return
		}
		k.port.ReportKernelError(k.command, StatusReceptionError)
		return
	}
	if ack, ok := msg.(wire.Acknowledged); ok {
		if code := ack.Ack(); code != 0 {
			k.sendService(&wire.ReceptionCode{Code: code})
		}
	}
	switch m := msg.(type) {
	case *wire.ModuleParameters:
		k.setModuleParameters(m)
	case *wire.KernelParameters:
		k.locks.ActionLock, k.locks.TTLLock = m.ActionLock, m.TTLLock
		k.sendState(StatusModuleParametersSet)
	case *wire.KernelCommand:
		k.runKernelCommand(m.Command)
	case *wire.DequeueModuleCommand:
		if core := k.resolveTarget(m.ModuleType, m.ModuleID); core != nil {
			core.ClearQueue()
		}
	case *wire.OneOffModuleCommand:
		if core := k.resolveTarget(m.ModuleType, m.ModuleID); core != nil {
			core.Queue(m.Command, m.Noblock)
		}
	case *wire.RepeatedModuleCommand:
		if core := k.resolveTarget(m.ModuleType, m.ModuleID); core != nil {
			core.QueueRecurrent(m.Command, m.Noblock, m.CycleDelay)
		}
	default:
		// A controller-to-host message looped back at us.
		k.sendData(StatusInvalidMessageProtocol, wire.PrototypeOneUint8, byte(msg.Protocol()))
	}
}

// NoteFault reports a framing fault flagged by the receive pump.
func (k *Kernel) NoteFault(codecStatus byte) {
	k.port.NoteFault(codecStatus)
	k.port.ReportKernelError(k.command, StatusReceptionError)
}

func (k *Kernel) setModuleParameters(m *wire.ModuleParameters) {
	mod := k.resolveModule(m.ModuleType, m.ModuleID)
	if mod == nil {
		return
	}
	if err := mod.SetParameters(); err != nil {
		glog.Errorf("module %d.%d parameters: %v", m.ModuleType, m.ModuleID, err)
		k.sendData(StatusModuleParametersError, wire.PrototypeTwoUint8s, [2]uint8{m.ModuleType, m.ModuleID})
		return
	}
	k.sendData(StatusModuleParametersSet, wire.PrototypeTwoUint8s, [2]uint8{m.ModuleType, m.ModuleID})
}

func (k *Kernel) runKernelCommand(code byte) {
	k.command = code
	switch code {
	case CommandResetController:
		k.Setup()
	case CommandIdentifyController:
		k.sendService(&wire.ControllerIdentification{ID: k.id})
	case CommandIdentifyModules:
		for _, m := range k.modules {
			k.sendService(&wire.ModuleIdentification{TypeID: m.Core().TypeID()})
		}
	case CommandKeepAlive:
		if !k.keepaliveArmed && k.keepaliveMicros > 0 {
			k.keepaliveArmed = true
			glog.V(1).Infof("keepalive watchdog armed: %v", k.keepalive)
		}
		k.keepaliveMark = k.clk.Micros()
	default:
		k.sendState(StatusCommandNotRecognized)
	}
}

// resolveModule finds the managed module addressed by type and ID,
// reporting misses to the host.
func (k *Kernel) resolveModule(typ, id byte) module.Module {
	for _, m := range k.modules {
		core := m.Core()
		if core.Type() == typ && core.ID() == id {
			return m
		}
	}
	k.sendData(StatusTargetModuleNotFound, wire.PrototypeTwoUint8s, [2]uint8{typ, id})
	return nil
}

func (k *Kernel) resolveTarget(typ, id byte) *module.Core {
	if m := k.resolveModule(typ, id); m != nil {
		return m.Core()
	}
	return nil
}

func (k *Kernel) sendData(event byte, proto wire.Prototype, obj interface{}) {
	data, err := proto.Pack(obj)
	if err != nil {
		k.port.ReportKernelError(k.command, StatusTransmissionError)
		return
	}
	err = k.port.Send(&wire.KernelData{
		Command:   k.command,
		Event:     event,
		Prototype: proto,
		Object:    data,
	})
	if err != nil {
		k.port.ReportKernelError(k.command, StatusTransmissionError)
	}
}

func (k *Kernel) sendState(event byte) {
	if err := k.port.Send(&wire.KernelState{Command: k.command, Event: event}); err != nil {
		k.port.ReportKernelError(k.command, StatusTransmissionError)
	}
}

func (k *Kernel) sendService(msg wire.Message) {
	if err := k.port.Send(msg); err != nil {
		k.port.ReportKernelError(k.command, StatusTransmissionError)
	}
}
