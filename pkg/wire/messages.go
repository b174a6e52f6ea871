package wire

import (
	"encoding/binary"
)

// RepeatedModuleCommand queues a module command to re-run at a fixed
// interval until superseded or dequeued.
type RepeatedModuleCommand struct {
	ModuleType byte
	ModuleID   byte
	ReturnCode byte
	Command    byte
	Noblock    bool
	// CycleDelay is the microseconds between command completions.
	CycleDelay uint32
}

// Protocol implements Message.
func (m *RepeatedModuleCommand) Protocol() Protocol { return ProtocolRepeatedModuleCommand }

// Target implements Addressed.
func (m *RepeatedModuleCommand) Target() (byte, byte) { return m.ModuleType, m.ModuleID }

// Ack implements Acknowledged.
func (m *RepeatedModuleCommand) Ack() byte { return m.ReturnCode }

// Bytes implements Message.
func (m *RepeatedModuleCommand) Bytes() []byte {
	b := make([]byte, 10)
	b[0] = byte(ProtocolRepeatedModuleCommand)
	b[1], b[2], b[3], b[4] = m.ModuleType, m.ModuleID, m.ReturnCode, m.Command
	b[5] = encodeBool(m.Noblock)
	binary.LittleEndian.PutUint32(b[6:], m.CycleDelay)
	return b
}

// OneOffModuleCommand queues a module command for a single run,
// superseding any pending recurrent command.
type OneOffModuleCommand struct {
	ModuleType byte
	ModuleID   byte
	ReturnCode byte
	Command    byte
	Noblock    bool
}

// Protocol implements Message.
func (m *OneOffModuleCommand) Protocol() Protocol { return ProtocolOneOffModuleCommand }

// Target implements Addressed.
func (m *OneOffModuleCommand) Target() (byte, byte) { return m.ModuleType, m.ModuleID }

// Ack implements Acknowledged.
func (m *OneOffModuleCommand) Ack() byte { return m.ReturnCode }

// Bytes implements Message.
func (m *OneOffModuleCommand) Bytes() []byte {
	return []byte{
		byte(ProtocolOneOffModuleCommand),
		m.ModuleType, m.ModuleID, m.ReturnCode, m.Command,
		encodeBool(m.Noblock),
	}
}

// DequeueModuleCommand clears a module command queue without touching
// the command already in flight.
type DequeueModuleCommand struct {
	ModuleType byte
	ModuleID   byte
	ReturnCode byte
}

// Protocol implements Message.
func (m *DequeueModuleCommand) Protocol() Protocol { return ProtocolDequeueModuleCommand }

// Target implements Addressed.
func (m *DequeueModuleCommand) Target() (byte, byte) { return m.ModuleType, m.ModuleID }

// Ack implements Acknowledged.
func (m *DequeueModuleCommand) Ack() byte { return m.ReturnCode }

// Bytes implements Message.
func (m *DequeueModuleCommand) Bytes() []byte {
	return []byte{byte(ProtocolDequeueModuleCommand), m.ModuleType, m.ModuleID, m.ReturnCode}
}

// KernelCommand addresses the kernel itself (reset, identify,
// keepalive).
type KernelCommand struct {
	ReturnCode byte
	Command    byte
}

// Protocol implements Message.
func (m *KernelCommand) Protocol() Protocol { return ProtocolKernelCommand }

// Ack implements Acknowledged.
func (m *KernelCommand) Ack() byte { return m.ReturnCode }

// Bytes implements Message.
func (m *KernelCommand) Bytes() []byte {
	return []byte{byte(ProtocolKernelCommand), m.ReturnCode, m.Command}
}

// ModuleParameters carries an opaque parameter block for one module.
// Only the addressed module knows the layout of Data.
type ModuleParameters struct {
	ModuleType byte
	ModuleID   byte
	ReturnCode byte
	Data       []byte
}

// Protocol implements Message.
func (m *ModuleParameters) Protocol() Protocol { return ProtocolModuleParameters }

// Target implements Addressed.
func (m *ModuleParameters) Target() (byte, byte) { return m.ModuleType, m.ModuleID }

// Ack implements Acknowledged.
func (m *ModuleParameters) Ack() byte { return m.ReturnCode }

// Bytes implements Message.
func (m *ModuleParameters) Bytes() []byte {
	b := make([]byte, len(m.Data)+4)
	b[0] = byte(ProtocolModuleParameters)
	b[1], b[2], b[3] = m.ModuleType, m.ModuleID, m.ReturnCode
	copy(b[4:], m.Data)
	return b
}

// KernelParameters updates the global lock flags guarding hardware
// writes.
type KernelParameters struct {
	ReturnCode byte
	ActionLock bool
	TTLLock    bool
}

// Protocol implements Message.
func (m *KernelParameters) Protocol() Protocol { return ProtocolKernelParameters }

// Ack implements Acknowledged.
func (m *KernelParameters) Ack() byte { return m.ReturnCode }

// Bytes implements Message.
func (m *KernelParameters) Bytes() []byte {
	return []byte{
		byte(ProtocolKernelParameters), m.ReturnCode,
		encodeBool(m.ActionLock), encodeBool(m.TTLLock),
	}
}

// ModuleData reports a module event with a data object attached.
type ModuleData struct {
	ModuleType byte
	ModuleID   byte
	Command    byte
	Event      byte
	Prototype  Prototype
	Object     []byte
}

// Protocol implements Message.
func (m *ModuleData) Protocol() Protocol { return ProtocolModuleData }

// Target implements Addressed.
func (m *ModuleData) Target() (byte, byte) { return m.ModuleType, m.ModuleID }

// Bytes implements Message.
func (m *ModuleData) Bytes() []byte {
	b := make([]byte, len(m.Object)+6)
	b[0] = byte(ProtocolModuleData)
	b[1], b[2], b[3], b[4], b[5] = m.ModuleType, m.ModuleID, m.Command, m.Event, byte(m.Prototype)
	copy(b[6:], m.Object)
	return b
}

// Value decodes the attached object per its prototype.
func (m *ModuleData) Value() (interface{}, error) {
	return m.Prototype.Unpack(m.Object)
}

// KernelData reports a kernel event with a data object attached.
type KernelData struct {
	Command   byte
	Event     byte
	Prototype Prototype
	Object    []byte
}

// Protocol implements Message.
func (m *KernelData) Protocol() Protocol { return ProtocolKernelData }

// Bytes implements Message.
func (m *KernelData) Bytes() []byte {
	b := make([]byte, len(m.Object)+4)
	b[0] = byte(ProtocolKernelData)
	b[1], b[2], b[3] = m.Command, m.Event, byte(m.Prototype)
	copy(b[4:], m.Object)
	return b
}

// Value decodes the attached object per its prototype.
func (m *KernelData) Value() (interface{}, error) {
	return m.Prototype.Unpack(m.Object)
}

// ModuleState reports a module event without data.
type ModuleState struct {
	ModuleType byte
	ModuleID   byte
	Command    byte
	Event      byte
}

// Protocol implements Message.
func (m *ModuleState) Protocol() Protocol { return ProtocolModuleState }

// Target implements Addressed.
func (m *ModuleState) Target() (byte, byte) { return m.ModuleType, m.ModuleID }

// Bytes implements Message.
func (m *ModuleState) Bytes() []byte {
	return []byte{byte(ProtocolModuleState), m.ModuleType, m.ModuleID, m.Command, m.Event}
}

// KernelState reports a kernel event without data.
type KernelState struct {
	Command byte
	Event   byte
}

// Protocol implements Message.
func (m *KernelState) Protocol() Protocol { return ProtocolKernelState }

// Bytes implements Message.
func (m *KernelState) Bytes() []byte {
	return []byte{byte(ProtocolKernelState), m.Command, m.Event}
}

// ReceptionCode acknowledges a host-issued message by echoing its
// return code.
type ReceptionCode struct {
	Code byte
}

// Protocol implements Message.
func (m *ReceptionCode) Protocol() Protocol { return ProtocolReceptionCode }

// Bytes implements Message.
func (m *ReceptionCode) Bytes() []byte {
	return []byte{byte(ProtocolReceptionCode), m.Code}
}

// ControllerIdentification reports the controller ID.
type ControllerIdentification struct {
	ID byte
}

// Protocol implements Message.
func (m *ControllerIdentification) Protocol() Protocol { return ProtocolControllerIdentification }

// Bytes implements Message.
func (m *ControllerIdentification) Bytes() []byte {
	return []byte{byte(ProtocolControllerIdentification), m.ID}
}

// ModuleIdentification reports one managed module as a combined
// type and ID code.
type ModuleIdentification struct {
	// TypeID is module type in the high byte, module ID in the low.
	TypeID uint16
}

// Protocol implements Message.
func (m *ModuleIdentification) Protocol() Protocol { return ProtocolModuleIdentification }

// Bytes implements Message.
func (m *ModuleIdentification) Bytes() []byte {
	b := make([]byte, 3)
	b[0] = byte(ProtocolModuleIdentification)
	binary.LittleEndian.PutUint16(b[1:], m.TypeID)
	return b
}

// Decode parses one payload into its message. The trailing bytes of
// parameter and data messages are sliced, not copied.
func Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, ErrShortMessage
	}
	switch Protocol(payload[0]) {
	case ProtocolRepeatedModuleCommand:
		if len(payload) < 10 {
			return nil, ErrShortMessage
		}
		return &RepeatedModuleCommand{
			ModuleType: payload[1],
			ModuleID:   payload[2],
			ReturnCode: payload[3],
			Command:    payload[4],
			Noblock:    payload[5] != 0,
			CycleDelay: binary.LittleEndian.Uint32(payload[6:]),
		}, nil
	case ProtocolOneOffModuleCommand:
		if len(payload) < 6 {
			return nil, ErrShortMessage
		}
		return &OneOffModuleCommand{
			ModuleType: payload[1],
			ModuleID:   payload[2],
			ReturnCode: payload[3],
			Command:    payload[4],
			Noblock:    payload[5] != 0,
		}, nil
	case ProtocolDequeueModuleCommand:
		if len(payload) < 4 {
			return nil, ErrShortMessage
		}
		return &DequeueModuleCommand{
			ModuleType: payload[1],
			ModuleID:   payload[2],
			ReturnCode: payload[3],
		}, nil
	case ProtocolKernelCommand:
		if len(payload) < 3 {
			return nil, ErrShortMessage
		}
		return &KernelCommand{ReturnCode: payload[1], Command: payload[2]}, nil
	case ProtocolModuleParameters:
		if len(payload) < 5 {
			return nil, ErrShortMessage
		}
		return &ModuleParameters{
			ModuleType: payload[1],
			ModuleID:   payload[2],
			ReturnCode: payload[3],
			Data:       payload[4:],
		}, nil
	case ProtocolKernelParameters:
		if len(payload) < 4 {
			return nil, ErrShortMessage
		}
		return &KernelParameters{
			ReturnCode: payload[1],
			ActionLock: payload[2] != 0,
			TTLLock:    payload[3] != 0,
		}, nil
	case ProtocolModuleData:
		if len(payload) < 7 {
			return nil, ErrShortMessage
		}
		return &ModuleData{
			ModuleType: payload[1],
			ModuleID:   payload[2],
			Command:    payload[3],
			Event:      payload[4],
			Prototype:  Prototype(payload[5]),
			Object:     payload[6:],
		}, nil
	case ProtocolKernelData:
		if len(payload) < 5 {
			return nil, ErrShortMessage
		}
		return &KernelData{
			Command:   payload[1],
			Event:     payload[2],
			Prototype: Prototype(payload[3]),
			Object:    payload[4:],
		}, nil
	case ProtocolModuleState:
		if len(payload) < 5 {
			return nil, ErrShortMessage
		}
		return &ModuleState{
			ModuleType: payload[1],
			ModuleID:   payload[2],
			Command:    payload[3],
			Event:      payload[4],
		}, nil
	case ProtocolKernelState:
		if len(payload) < 3 {
			return nil, ErrShortMessage
		}
		return &KernelState{Command: payload[1], Event: payload[2]}, nil
	case ProtocolReceptionCode:
		if len(payload) < 2 {
			return nil, ErrShortMessage
		}
		return &ReceptionCode{Code: payload[1]}, nil
	case ProtocolControllerIdentification:
		if len(payload) < 2 {
			return nil, ErrShortMessage
		}
		return &ControllerIdentification{ID: payload[1]}, nil
	case ProtocolModuleIdentification:
		if len(payload) < 3 {
			return nil, ErrShortMessage
		}
		return &ModuleIdentification{TypeID: binary.LittleEndian.Uint16(payload[1:])}, nil
	}
	return nil, &UnknownProtocolError{Code: payload[0]}
}

func encodeBool(v bool) byte {
	if v {
		return 1
	}
	return 0
}
