package docker

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/go-archive"
	"github.com/moby/term"

	"github.com/pathtofile/dockenv/internal/model"
)

// ListImages returns every local image. The image list endpoint never
// contacts a registry, so a lookup by name can not leak the name or pull
// an attacker-supplied image of the same name.
func ListImages(ctx context.Context, cli *Client) ([]model.Image, error) {
	summaries, err := cli.inner.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker images",
			err,
		)
	}

	images := make([]model.Image, 0, len(summaries))
	for _, s := range summaries {
		images = append(images, summaryToImage(s))
	}
	return images, nil
}

// summaryToImage converts a Docker API image summary to the domain model.
func summaryToImage(s image.Summary) model.Image {
	return model.Image{
		ID:        s.ID,
		Tags:      s.RepoTags,
		Labels:    s.Labels,
		Size:      s.Size,
		CreatedAt: time.Unix(s.Created, 0),
	}
}

// ListEnvs returns all dockenv environments with label metadata applied.
func ListEnvs(ctx context.Context, cli *Client) ([]model.Env, error) {
	images, err := ListImages(ctx, cli)
	if err != nil {
		return nil, err
	}

	envs := model.ListEnvs(images)
	for i := range envs {
		ApplyImageLabels(&envs[i])
	}
	return envs, nil
}

// FindImage looks up "name:tag" among local images. An empty tag means
// "latest".
func FindImage(ctx context.Context, cli *Client, name, tag string) (*model.Image, bool, error) {
	images, err := ListImages(ctx, cli)
	if err != nil {
		return nil, false, err
	}
	img, ok := model.FindImage(images, name, tag)
	return img, ok, nil
}

// ImageExists reports whether "name:tag" exists locally.
func ImageExists(ctx context.Context, cli *Client, name, tag string) (bool, error) {
	_, ok, err := FindImage(ctx, cli, name, tag)
	return ok, err
}

// BaseImagePresent reports whether ref is available locally. Unlike
// ImageExists it accepts any reference form (digests, IDs) because it is
// only used to decide whether the first build will need a long pull.
func BaseImagePresent(ctx context.Context, cli *Client, ref string) (bool, error) {
	_, err := cli.inner.ImageInspect(ctx, ref)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect image %q", ref),
			err,
		)
	}
	return true, nil
}

// BuildImage builds contextDir into an image tagged tag. Build progress is
// rendered to out; a terminal gets the same live view as `docker build`.
//
// Errors reported inside the build stream (a failing RUN step, an
// unresolvable base image) are returned as ExitBuildFailed.
func BuildImage(ctx context.Context, cli *Client, contextDir, tag string, labels map[string]string, out io.Writer) error {
	buildContext, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to archive build context: %w", err)
	}
	defer buildContext.Close()

	resp, err := cli.inner.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:        []string{tag},
		Labels:      labels,
		Dockerfile:  "Dockerfile",
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start build of %q", tag),
			err,
		)
	}
	defer resp.Body.Close()

	if err := displayStream(resp.Body, out); err != nil {
		return model.WrapCLIError(
			model.ExitBuildFailed,
			fmt.Sprintf("build of %q failed", tag),
			err,
		)
	}
	return nil
}

// displayStream renders a daemon JSON message stream. A JSONError inside
// the stream is returned as the error.
func displayStream(in io.Reader, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	fd, isTerm := term.GetFdInfo(out)
	return jsonmessage.DisplayJSONMessagesStream(in, out, fd, isTerm, nil)
}

// RemoveImage deletes ref. Untagged parent layers are pruned, matching
// `docker rmi`.
func RemoveImage(ctx context.Context, cli *Client, ref string) error {
	_, err := cli.inner.ImageRemove(ctx, ref, image.RemoveOptions{PruneChildren: true})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return model.WrapCLIError(
				model.ExitEnvNotFound,
				fmt.Sprintf("image %q not found", ref),
				err,
			)
		}
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove image %q", ref),
			err,
		)
	}
	return nil
}

// SaveImage writes ref as a `docker save` tar archive to w.
func SaveImage(ctx context.Context, cli *Client, ref string, w io.Writer) error {
	rc, err := cli.inner.ImageSave(ctx, []string{ref})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to save image %q", ref),
			err,
		)
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("failed to write image archive: %w", err)
	}
	return nil
}

// LoadImage loads a `docker save` archive from r, rendering progress to out.
func LoadImage(ctx context.Context, cli *Client, r io.Reader, out io.Writer) error {
	resp, err := cli.inner.ImageLoad(ctx, r)
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to load image archive",
			err,
		)
	}
	defer resp.Body.Close()

	if !resp.JSON {
		if out == nil {
			out = io.Discard
		}
		_, err := io.Copy(out, resp.Body)
		return err
	}
	if err := displayStream(resp.Body, out); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "image archive rejected by daemon", err)
	}
	return nil
}

// archiveManifestEntry is one element of manifest.json in a `docker save`
// archive.
type archiveManifestEntry struct {
	Config   string   `json:"Config"`
	RepoTags []string `json:"RepoTags"`
	Layers   []string `json:"Layers"`
}

// errNoManifest is returned when an archive has no manifest.json.
var errNoManifest = errors.New("manifest.json not found in archive")

// ArchiveRepoTags reads the repository tags recorded in a `docker save`
// archive without contacting the daemon.
func ArchiveRepoTags(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	return readRepoTags(f)
}

// readRepoTags scans a tar stream for manifest.json and collects its tags.
func readRepoTags(r io.Reader) ([]string, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errNoManifest
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Name != "manifest.json" && hdr.Name != "./manifest.json" {
			continue
		}

		var entries []archiveManifestEntry
		if err := json.NewDecoder(tr).Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to parse manifest.json: %w", err)
		}

		tags := make([]string, 0)
		for _, e := range entries {
			tags = append(tags, e.RepoTags...)
		}
		return tags, nil
	}
}
