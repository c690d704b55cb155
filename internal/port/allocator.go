package port

import (
	"fmt"
)

const (
	// maxPort is the highest valid TCP/UDP port number (2^16 - 1).
	maxPort = 65535

	// dynamicRangeStart is the start of the IANA dynamic/private port range.
	dynamicRangeStart = 49152

	// dynamicRangeEnd is the end of the dynamic port range.
	dynamicRangeEnd = 65535
)

// Checker reports whether the OS would let us bind a port. *Scanner is
// the production implementation.
type Checker interface {
	IsPortAvailable(port int, protocol string) bool
}

// Allocator chooses the host port a container port is published on.
type Allocator struct {
	checker Checker

	// reserved holds host ports already published by other dockenv
	// containers.
	reserved map[int]bool
}

// NewAllocator creates a new Allocator backed by checker.
func NewAllocator(checker Checker) *Allocator {
	return &Allocator{
		checker:  checker,
		reserved: make(map[int]bool),
	}
}

// Reserve marks host ports as taken, typically those read from the
// port labels of running dockenv containers.
func (a *Allocator) Reserve(ports ...int) {
	for _, p := range ports {
		a.reserved[p] = true
	}
}

// Allocate returns the host port for containerPort:
//  1. containerPort itself, if it is free and not reserved
//  2. otherwise the first free, unreserved port in 49152-65535
//
// The chosen port is reserved so a second call never returns it again.
func (a *Allocator) Allocate(containerPort int, protocol string) (int, error) {
	if containerPort < 1 || containerPort > maxPort {
		return 0, fmt.Errorf("port %d out of range (1-%d)", containerPort, maxPort)
	}
	if protocol == "" {
		protocol = "tcp"
	}

	if a.available(containerPort, protocol) {
		a.reserved[containerPort] = true
		return containerPort, nil
	}

	for candidate := dynamicRangeStart; candidate <= dynamicRangeEnd; candidate++ {
		if a.available(candidate, protocol) {
			a.reserved[candidate] = true
			return candidate, nil
		}
	}

	return 0, fmt.Errorf("port %d is in use and no free %s port found in range %d-%d",
		containerPort, protocol, dynamicRangeStart, dynamicRangeEnd)
}

// available combines the reservation list with the OS-level check.
func (a *Allocator) available(port int, protocol string) bool {
	if a.reserved[port] {
		return false
	}
	return a.checker.IsPortAvailable(port, protocol)
}
