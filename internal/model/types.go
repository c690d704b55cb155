package model

import (
	"fmt"
	"time"
)

// Image is a locally stored Docker image as reported by the Engine's image
// list endpoint. Only the fields dockenv reads are kept.
type Image struct {
	// ID is the content-addressable image ID ("sha256:...").
	ID string `json:"id"`

	// Tags lists every "repository:tag" reference pointing at this image.
	// Dangling images have no tags.
	Tags []string `json:"tags,omitempty"`

	// Labels is the set of image labels, including dockenv.* metadata
	// for images built by this tool.
	Labels map[string]string `json:"labels,omitempty"`

	// Size is the image size in bytes.
	Size int64 `json:"size"`

	// CreatedAt is when the image was built.
	CreatedAt time.Time `json:"createdAt"`
}

// Container holds the runtime information about a Docker container that
// dockenv needs for cleanup.
type Container struct {
	// ID is the Docker container identifier.
	ID string `json:"id"`

	// Name is the container name without the API's leading "/".
	Name string `json:"name"`

	// Image is the image reference the container was created from,
	// e.g. "dockenv-myenv" or "dockenv-myenv:latest".
	Image string `json:"image"`

	// State is the Docker container state ("running", "exited", ...).
	State string `json:"state"`
}

// ShortID returns the first 12 characters of the container ID, the same
// abbreviation `docker ps` prints.
func (c Container) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}

// Env is a dockenv virtual environment: a user-chosen name paired with the
// Docker image that backs it.
type Env struct {
	// Name is the user-chosen environment name (without the "dockenv-" prefix).
	Name string `json:"name"`

	// Tag is the full image reference, e.g. "dockenv-myenv:latest".
	Tag string `json:"tag"`

	// ImageID is the backing image ID.
	ImageID string `json:"imageId"`

	// BaseImage is the image the environment was built FROM, when known
	// from labels.
	BaseImage string `json:"baseImage,omitempty"`

	// Packages lists the pip packages requested at build time, when known
	// from labels.
	Packages []string `json:"packages,omitempty"`

	// Labels holds the raw image labels that BaseImage and Packages are
	// decoded from.
	Labels map[string]string `json:"-"`

	// Size is the image size in bytes.
	Size int64 `json:"size"`

	// CreatedAt is when the image was built.
	CreatedAt time.Time `json:"createdAt"`
}

// ExitCode defines the CLI exit codes. These codes allow scripts and CI
// systems to programmatically determine the outcome of a command.
//
// A failed script run does not use one of these constants: dockenv exits
// with the container's own exit status instead.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates a bad argument, flag, or input file.
	ExitInvalidInput ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitEnvNotFound indicates the named virtual environment does not exist.
	ExitEnvNotFound ExitCode = 4

	// ExitEnvExists indicates the named virtual environment already exists.
	ExitEnvExists ExitCode = 5

	// ExitBuildFailed indicates the image build failed.
	ExitBuildFailed ExitCode = 6

	// ExitPortUnavailable indicates a requested host port is already in use.
	ExitPortUnavailable ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
