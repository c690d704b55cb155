package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// ImagePrefix is prepended to every environment name to form the
	// image repository, e.g. "myenv" -> "dockenv-myenv".
	ImagePrefix = "dockenv-"

	// DefaultTag is the tag Docker applies when a reference has none.
	DefaultTag = "latest"
)

// nameRegex matches a single Docker repository path component: lowercase
// alphanumerics separated by one '.', '_' or '-'. The image repository is
// ImagePrefix+name, so the name must satisfy the same grammar.
var nameRegex = regexp.MustCompile(`^[a-z0-9]+(?:[._-][a-z0-9]+)*$`)

// ValidateName checks if the given name is a valid environment name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: use lowercase letters and digits, optionally separated by '.', '_' or '-'", name)
	}
	return nil
}

// ImageName returns the image repository for an environment.
//
//	ImageName("myenv") → "dockenv-myenv"
func ImageName(envName string) string {
	return ImagePrefix + envName
}

// ImageRef returns the fully tagged image reference for an environment.
// An empty tag means DefaultTag.
//
//	ImageRef("myenv", "")     → "dockenv-myenv:latest"
//	ImageRef("myenv", "v2")   → "dockenv-myenv:v2"
func ImageRef(envName, tag string) string {
	if tag == "" {
		tag = DefaultTag
	}
	return ImageName(envName) + ":" + tag
}

// EnvName recovers the user-chosen environment name from an image
// reference by stripping the "dockenv-" prefix and an optional ":latest"
// suffix. Other tags are left in place so they stay visible to the user.
//
//	EnvName("dockenv-myenv")        → "myenv"
//	EnvName("dockenv-myenv:latest") → "myenv"
//	EnvName("dockenv-myenv:v2")     → "myenv:v2"
func EnvName(ref string) string {
	name := strings.TrimPrefix(ref, ImagePrefix)
	return strings.TrimSuffix(name, ":"+DefaultTag)
}

// IsEnvTag reports whether a "repository:tag" reference belongs to a
// dockenv environment: the repository is "dockenv-" followed by a valid
// environment name.
func IsEnvTag(ref string) bool {
	repo, _ := SplitRepoTag(ref)
	name, ok := strings.CutPrefix(repo, ImagePrefix)
	return ok && ValidateName(name) == nil
}

// SplitRepoTag splits "repository:tag" into its parts. The split happens on
// the last colon after the last slash, so registry ports
// ("host:5000/repo:tag") are not mistaken for tags. A reference without
// a tag returns DefaultTag.
func SplitRepoTag(ref string) (repo, tag string) {
	slash := strings.LastIndex(ref, "/")
	colon := strings.LastIndex(ref, ":")
	if colon > slash {
		return ref[:colon], ref[colon+1:]
	}
	return ref, DefaultTag
}

// FindImage returns the first image whose tag list contains exactly
// "name:tag". The match is exact: "dockenv-ccc" never matches
// "dockenv-cccc:latest". An empty tag means DefaultTag.
func FindImage(images []Image, name, tag string) (*Image, bool) {
	if tag == "" {
		tag = DefaultTag
	}
	want := name + ":" + tag
	for i := range images {
		for _, t := range images[i].Tags {
			if t == want {
				return &images[i], true
			}
		}
	}
	return nil, false
}

// ListEnvs collects every dockenv environment found in the image list.
// An image carrying several dockenv tags yields one Env per tag.
// Results are sorted by name.
func ListEnvs(images []Image) []Env {
	seen := make(map[string]bool)
	envs := make([]Env, 0)

	for _, img := range images {
		for _, tag := range img.Tags {
			if !IsEnvTag(tag) {
				continue
			}
			name := EnvName(tag)
			if seen[name] {
				continue
			}
			seen[name] = true

			envs = append(envs, Env{
				Name:      name,
				Tag:       tag,
				ImageID:   img.ID,
				Labels:    img.Labels,
				Size:      img.Size,
				CreatedAt: img.CreatedAt,
			})
		}
	}

	sort.Slice(envs, func(i, j int) bool {
		return envs[i].Name < envs[j].Name
	})
	return envs
}

// ContainerMatchesImage reports whether a container created from
// containerImage belongs to the image repository name. Both the bare
// repository and any "repository:tag" form match; other repositories that
// merely share a prefix do not.
func ContainerMatchesImage(containerImage, name string) bool {
	if containerImage == name {
		return true
	}
	repo, _ := SplitRepoTag(containerImage)
	return repo == name
}
