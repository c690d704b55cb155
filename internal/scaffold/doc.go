// Package scaffold renders the files dockenv hands to Docker: the
// Dockerfile and build context for a new environment, and the runner
// directory (the user's script plus a generated run.sh) that is
// bind-mounted read-only into every run container.
//
// Everything here is plain file generation. Nothing in this package talks
// to the Docker daemon, so all of it is tested without one.
package scaffold
