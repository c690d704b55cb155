package docker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pathtofile/dockenv/internal/model"
)

// Label key constants define the Docker label keys dockenv writes on the
// images it builds and the containers it runs. Labels are informational:
// the "dockenv-<envname>" tag remains the source of truth, so images
// built by hand or imported from elsewhere still work without them.
//
// All keys share the "dockenv." prefix to avoid collisions with labels
// inherited from base images.
const (
	// LabelPrefix is the common prefix for all dockenv labels.
	LabelPrefix = "dockenv."

	// LabelManagedBy identifies images and containers created by dockenv.
	// Key: "dockenv.managed-by", Value: always "dockenv".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelName stores the environment name.
	// Key: "dockenv.name", Value: environment name (e.g., "scraper").
	LabelName = LabelPrefix + "name"

	// LabelBaseImage stores the image the environment was built FROM.
	LabelBaseImage = LabelPrefix + "base-image"

	// LabelPackages stores the --package specifiers, comma separated.
	LabelPackages = LabelPrefix + "packages"

	// LabelCreatedAt stores the RFC3339 build timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"

	// LabelPortPrefix is the prefix for per-port labels on run containers:
	//   "dockenv.port.8080" = "49160"
	LabelPortPrefix = LabelPrefix + "port."
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "dockenv"

// ImageMetadata is what BuildImageLabels records on an environment image.
type ImageMetadata struct {
	Name      string
	BaseImage string
	Packages  []string
	CreatedAt time.Time
}

// BuildImageLabels constructs the label map applied at image build time.
// Timestamps are written in UTC so `docker inspect` output is the same
// regardless of the builder's timezone.
func BuildImageLabels(meta ImageMetadata) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelName:      meta.Name,
		LabelBaseImage: meta.BaseImage,
		LabelCreatedAt: meta.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(meta.Packages) > 0 {
		labels[LabelPackages] = strings.Join(meta.Packages, ",")
	}
	return labels
}

// ParseImageLabels is the inverse of BuildImageLabels. It returns an error
// when the image was not built by dockenv or a label is malformed.
func ParseImageLabels(labels map[string]string) (*ImageMetadata, error) {
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	meta := &ImageMetadata{
		Name:      labels[LabelName],
		BaseImage: labels[LabelBaseImage],
	}

	if raw := labels[LabelPackages]; raw != "" {
		meta.Packages = strings.Split(raw, ",")
	}

	if raw, ok := labels[LabelCreatedAt]; ok {
		createdAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
		}
		meta.CreatedAt = createdAt
	}

	return meta, nil
}

// ApplyImageLabels fills the label-derived fields of env. Environments
// whose image lacks dockenv labels are left untouched.
func ApplyImageLabels(env *model.Env) {
	meta, err := ParseImageLabels(env.Labels)
	if err != nil {
		return
	}
	env.BaseImage = meta.BaseImage
	env.Packages = meta.Packages
}

// BuildRunLabels constructs the labels applied to a run container.
// ports maps container ports to published host ports.
func BuildRunLabels(envName string, ports map[int]int) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelName:      envName,
	}
	for containerPort, hostPort := range ports {
		labels[BuildPortLabel(containerPort)] = strconv.Itoa(hostPort)
	}
	return labels
}

// BuildPortLabel generates the label key for a container port:
//
//	BuildPortLabel(8080) → "dockenv.port.8080"
func BuildPortLabel(containerPort int) string {
	return fmt.Sprintf("%s%d", LabelPortPrefix, containerPort)
}

// ParsePortLabels extracts the container→host port map from run
// container labels. Returns an empty (non-nil) map when there are none.
func ParsePortLabels(labels map[string]string) (map[int]int, error) {
	ports := make(map[int]int)

	for key, value := range labels {
		if !strings.HasPrefix(key, LabelPortPrefix) {
			continue
		}

		containerPort, err := strconv.Atoi(strings.TrimPrefix(key, LabelPortPrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid container port in label key %q: %w", key, err)
		}

		hostPort, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid host port in label %q=%q: %w", key, value, err)
		}

		ports[containerPort] = hostPort
	}

	return ports, nil
}

// labelArgs renders labels as sorted `--label k=v` flags so generated
// command lines are deterministic.
func labelArgs(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, "--label", k+"="+labels[k])
	}
	return args
}
