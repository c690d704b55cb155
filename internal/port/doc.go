// Package port picks host ports for `dockenv run --publish`.
//
// A published port keeps its container port number on the host when that
// number is free. Otherwise the Allocator falls back to the IANA dynamic
// range (49152-65535). Ports already published by other dockenv run
// containers are reserved even when the OS would let us bind them, since
// Docker's proxy may not be listening yet.
package port
