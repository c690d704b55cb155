package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
)

// Container-side paths shared by the Dockerfile, run.sh and `docker run`.
const (
	// AppDir is the image's working directory.
	AppDir = "/usr/src/app"

	// RunnerMountPath is where the runner directory is bind-mounted.
	RunnerMountPath = AppDir + "/runner"

	// RunnerScriptName is the generated entrypoint inside the runner directory.
	RunnerScriptName = "run.sh"

	// RequirementsFile is the name a user's requirements file is copied to
	// in the build context.
	RequirementsFile = "requirements.txt"

	// PackagesFile lists --package arguments, one per line.
	PackagesFile = "packages.txt"

	// DefaultUser is the non-root account scripts run as.
	DefaultUser = "dockenv"
)

// BuildOptions describes the image a new environment is built from.
type BuildOptions struct {
	// BaseImage is the FROM reference, e.g. "python:3".
	BaseImage string

	// User is the non-root account created in the image. Empty means
	// DefaultUser.
	User string

	// RequirementsPath is a host path to a pip requirements file. Empty
	// means none.
	RequirementsPath string

	// Packages are extra pip requirement specifiers ("requests",
	// "numpy==1.26.4").
	Packages []string

	// OnlyBinary restricts pip to wheels, so no package setup.py runs at
	// build time.
	OnlyBinary bool
}

var (
	// userRegex follows the portable POSIX user name rules that useradd
	// and busybox adduser both accept.
	userRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

	dockerfileTmpl = template.Must(template.New("Dockerfile").Parse(dockerfileTemplate))
)

const dockerfileTemplate = `FROM {{ .BaseImage }}

RUN (useradd --create-home --shell /bin/sh {{ .User }} || adduser -D -s /bin/sh {{ .User }})

WORKDIR ` + AppDir + `
{{- if .Requirements }}

COPY ` + RequirementsFile + ` ./
RUN pip install --no-cache-dir{{ if .OnlyBinary }} --only-binary=:all:{{ end }} -r ` + RequirementsFile + `
{{- end }}
{{- if .Packages }}

COPY ` + PackagesFile + ` ./
RUN pip install --no-cache-dir{{ if .OnlyBinary }} --only-binary=:all:{{ end }} -r ` + PackagesFile + `
{{- end }}

USER {{ .User }}

CMD ["sh", "` + RunnerMountPath + `/` + RunnerScriptName + `"]
`

// dockerfileData is the view handed to the template.
type dockerfileData struct {
	BaseImage    string
	User         string
	Requirements bool
	Packages     bool
	OnlyBinary   bool
}

// Validate checks that the options render to a well-formed Dockerfile.
// Package specifiers are written into a pip requirements file, so they may
// not start with '-' (which pip would read as an option such as
// --index-url) or contain whitespace.
func (o BuildOptions) Validate() error {
	if strings.TrimSpace(o.BaseImage) == "" {
		return fmt.Errorf("base image must not be empty")
	}
	if strings.ContainsAny(o.BaseImage, " \t\r\n") {
		return fmt.Errorf("invalid base image %q", o.BaseImage)
	}
	if o.User != "" && !userRegex.MatchString(o.User) {
		return fmt.Errorf("invalid user name %q", o.User)
	}
	if o.User == "root" {
		return fmt.Errorf("scripts must not run as root")
	}
	for _, p := range o.Packages {
		if p == "" || strings.HasPrefix(p, "-") || strings.ContainsAny(p, " \t\r\n") {
			return fmt.Errorf("invalid package specifier %q", p)
		}
	}
	return nil
}

func (o BuildOptions) user() string {
	if o.User == "" {
		return DefaultUser
	}
	return o.User
}

// Dockerfile renders the Dockerfile for the given options.
func Dockerfile(opts BuildOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err := dockerfileTmpl.Execute(&buf, dockerfileData{
		BaseImage:    opts.BaseImage,
		User:         opts.user(),
		Requirements: opts.RequirementsPath != "",
		Packages:     len(opts.Packages) > 0,
		OnlyBinary:   opts.OnlyBinary,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render Dockerfile: %w", err)
	}
	return buf.String(), nil
}

// BuildContext populates dir with everything `docker build` needs: the
// Dockerfile, a copy of the requirements file and the packages list.
// dir must already exist; callers normally pass a fresh temp directory.
func BuildContext(dir string, opts BuildOptions) error {
	dockerfile, err := Dockerfile(opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return fmt.Errorf("failed to write Dockerfile: %w", err)
	}

	if opts.RequirementsPath != "" {
		if err := copyFile(opts.RequirementsPath, filepath.Join(dir, RequirementsFile), 0o644); err != nil {
			return fmt.Errorf("failed to copy requirements file: %w", err)
		}
	}

	if len(opts.Packages) > 0 {
		content := strings.Join(opts.Packages, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, PackagesFile), []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write packages file: %w", err)
		}
	}

	return nil
}
