package wire

// Protocol identifies the layout of a message payload.
type Protocol byte

// Protocol codes. Codes 1-6 are host to controller, 7-13 are
// controller to host.
const (
	ProtocolUndefined Protocol = iota
	ProtocolRepeatedModuleCommand
	ProtocolOneOffModuleCommand
	ProtocolDequeueModuleCommand
	ProtocolKernelCommand
	ProtocolModuleParameters
	ProtocolKernelParameters
	ProtocolModuleData
	ProtocolKernelData
	ProtocolModuleState
	ProtocolKernelState
	ProtocolReceptionCode
	ProtocolControllerIdentification
	ProtocolModuleIdentification
)

// Message is a decoded or to-be-encoded wire message.
type Message interface {
	// Protocol reports the protocol code of the message.
	Protocol() Protocol
	// Bytes returns the encoded payload, protocol byte first.
	Bytes() []byte
}

// Addressed is implemented by messages targeting one module.
type Addressed interface {
	// Target reports the addressed module type and ID.
	Target() (moduleType, moduleID byte)
}

// Acknowledged is implemented by host-issued messages carrying a
// return code. A zero return code asks for no reception ack.
type Acknowledged interface {
	// Ack reports the return code requested by the sender.
	Ack() byte
}
