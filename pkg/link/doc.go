// Package link moves wire messages over a framed, checksum-validated
// transport and tracks the status of every link operation.
//
// A frame wraps one message payload:
//
//	[start 0x81] [size] [COBS block] [crc16 lo] [crc16 hi]
//
// size is the raw payload length (1-254). The COBS block is the
// payload stuffed so zero bytes appear only as the trailing frame
// delimiter. The CRC (CRC-16/CCITT-FALSE) covers the COBS block
// including the delimiter and is appended little-endian.
//
// Transports deliver opaque byte chunks; the parser recovers frame
// boundaries from the bytes alone, so stream transports (serial, TCP)
// and message transports (MQTT, WebSocket) share one receive path.
//
// Producer/Consumer: controller runtime and host client.
package link
