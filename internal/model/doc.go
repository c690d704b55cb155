// Package model defines the domain types and value objects for the
// dockenv CLI.
//
// This package contains pure data structures and string conventions with no
// external dependencies. dockenv keeps no state of its own: every entity here
// (Image, Container, Env) is a transient view of objects owned by the Docker
// Engine, reconstructed from image tags and labels at runtime.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
