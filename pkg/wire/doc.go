// Package wire defines the message model spoken between the
// controller runtime and the host.
//
// Every payload starts with a protocol code byte selecting the message
// layout. Multi-byte fields are little-endian and packed without padding.
// Data-carrying messages declare a prototype code which fixes the byte
// size and shape of the trailing data object, so both ends can encode
// and decode without negotiation.
//
// Producer/Consumer: controller runtime and host client. The framed
// transport underneath is provided by package link.
package wire
