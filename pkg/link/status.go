package link

// Port statuses track the outcome of the last link operation. Error
// reports carry the pair [port status, codec status], so the codes
// stay disjoint from kernel and module event codes.
const (
	StatusStandby             byte = 151
	StatusReceptionError      byte = 152
	StatusParsingError        byte = 153
	StatusPackingError        byte = 154
	StatusTransmissionError   byte = 155
	StatusMessageSent         byte = 156
	StatusMessageReceived     byte = 157
	StatusInvalidProtocol     byte = 158
	StatusNoBytesToReceive    byte = 159
	StatusParameterMismatch   byte = 160
	StatusParametersExtracted byte = 161
	StatusExtractionForbidden byte = 162
)

// Codec statuses describe the frame layer underneath the port.
const (
	CodecStandby         byte = 101
	CodecPacketSent      byte = 102
	CodecPacketReceived  byte = 103
	CodecNoBytesToParse  byte = 104
	CodecCRCMismatch     byte = 105
	CodecSizeMismatch    byte = 106
	CodecCobsError       byte = 107
	CodecWriteError      byte = 108
	CodecReadError       byte = 109
	CodecPayloadTooLarge byte = 110
)
