// Package fpc provides the transport core for FPC, a bidirectional,
// message-oriented IPC layer over connected SOCK_SEQPACKET AF_UNIX
// sockets: frame encoding lives in fpc/wire, socket plumbing in
// fpc/sock, and this package ties them together into the Endpoint
// state machine, EndpointListener, and the Pair/Connect/ConnectAt
// constructors.
package fpc
