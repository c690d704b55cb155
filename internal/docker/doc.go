// Package docker provides Docker Engine API wrappers for the dockenv CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Image operations: list, build, inspect, remove, save and load
//   - Image and container labels recording environment metadata
//   - Container cleanup and interactive script runs via the docker CLI
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
// Image lookups only ever use the local image list, so an environment
// name is never sent to a registry.
package docker
