package scaffold

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
)

// RunnerOptions describes one script invocation inside a container.
type RunnerOptions struct {
	// Script is the file name of the script inside the runner directory.
	Script string

	// Args are passed to the script verbatim.
	Args []string

	// ExposePort, when non-zero, makes run.sh print the container address
	// the script is reachable on.
	ExposePort int

	// MountName, when set, is the directory name the user mount appears
	// under inside the runner directory.
	MountName string
}

// RunnerScript renders run.sh. The script changes into the runner mount
// and execs python so the script's exit status becomes the container's.
// Every word is shell-quoted, and lines always end in LF regardless of
// the host platform.
func RunnerScript(opts RunnerOptions) string {
	words := make([]string, 0, len(opts.Args)+2)
	words = append(words, "python", shellescape.Quote("./"+opts.Script))
	for _, a := range opts.Args {
		words = append(words, shellescape.Quote(a))
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if opts.ExposePort > 0 {
		fmt.Fprintf(&b, "echo \"[***] Exposed port: $(hostname -i):%d [***]\"\n", opts.ExposePort)
	}
	b.WriteString("cd " + RunnerMountPath + "\n")
	b.WriteString("exec " + strings.Join(words, " ") + "\n")
	return b.String()
}

// RunnerDir fills dir with the script at scriptPath and a generated run.sh.
//
// The container runs as an unprivileged user whose UID rarely matches the
// host's, so the tree is made world-readable. The runner directory is
// mounted read-only, which means Docker cannot create a nested mount point
// in it; when opts.MountName is set the directory is created here.
func RunnerDir(dir, scriptPath string, opts RunnerOptions) error {
	if opts.Script == "" {
		opts.Script = filepath.Base(scriptPath)
	}
	if opts.Script == RunnerScriptName || opts.Script == opts.MountName {
		return fmt.Errorf("script name %q collides with a runner file", opts.Script)
	}
	if opts.MountName == RunnerScriptName {
		return fmt.Errorf("mount name %q collides with a runner file", opts.MountName)
	}

	if err := copyFile(scriptPath, filepath.Join(dir, opts.Script), 0o644); err != nil {
		return fmt.Errorf("failed to copy script: %w", err)
	}

	runner := filepath.Join(dir, RunnerScriptName)
	if err := os.WriteFile(runner, []byte(RunnerScript(opts)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", RunnerScriptName, err)
	}

	if opts.MountName != "" {
		if err := os.Mkdir(filepath.Join(dir, opts.MountName), 0o755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("failed to create mount point: %w", err)
		}
	}

	return makeWorldReadable(dir)
}

// makeWorldReadable adds read (and, for directories, traverse) permission
// for everyone. The umask applied by os.WriteFile is undone as well.
func makeWorldReadable(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		mode := info.Mode().Perm() | 0o444
		if d.IsDir() {
			mode |= 0o111
		}
		return os.Chmod(path, mode)
	})
}

// ToPosixPath converts a Windows host path to the form Docker Desktop
// expects in bind mounts ("C:\Users\me" → "/c/Users/me"). On other
// platforms the path is returned unchanged. goos is normally
// runtime.GOOS.
func ToPosixPath(path, goos string) string {
	if goos != "windows" {
		return path
	}

	rest := path
	drive := ""
	if len(path) >= 2 && path[1] == ':' {
		drive = strings.ToLower(path[:1])
		rest = path[2:]
	}
	rest = strings.ReplaceAll(rest, `\`, "/")
	if drive == "" {
		return rest
	}
	return "/" + drive + rest
}

// copyFile copies src to dst, creating or truncating dst with perm.
func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
