// Package nhdp implements the neighborhood discovery (NHDP, RFC 6130) HELLO
// ingestion pipeline for an OLSRv2-family MANET routing daemon: the
// two-pass database mutation a received HELLO drives, the neighbor/link
// entity model it mutates, and the link-status timers layered on top.
//
// Wire parsing, socket I/O, interface discovery, TC flooding, and route
// computation live outside this package; Reader consumes them through the
// MessageContext/AddressInput contracts instead of depending on them
// directly.
package nhdp
