package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imagesWithTags builds an image list where each element carries the given
// tag set. IDs are derived from the position so lookups can be asserted.
func imagesWithTags(tagSets ...[]string) []Image {
	images := make([]Image, 0, len(tagSets))
	for i, tags := range tagSets {
		images = append(images, Image{
			ID:   "sha256:" + string(rune('a'+i)),
			Tags: tags,
		})
	}
	return images
}

// TestEnvName verifies prefix and ":latest" stripping.
func TestEnvName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no tag", "dockenv-myenv", "myenv"},
		{"latest tag", "dockenv-myenv:latest", "myenv"},
		{"other tag kept", "dockenv-myenv:v2", "myenv:v2"},
		{"dotted name", "dockenv-my.env_1:latest", "my.env_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvName(tt.input))
		})
	}
}

// TestNaming_RoundTrip checks that every valid env name survives the trip
// through the image name and back.
func TestNaming_RoundTrip(t *testing.T) {
	names := []string{"a", "myenv", "my-env", "my_env", "my.env", "env2", "x1-y2.z3"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, ValidateName(name))
			assert.Equal(t, name, EnvName(ImageName(name)))
			assert.Equal(t, name, EnvName(ImageRef(name, DefaultTag)))
			assert.Equal(t, name, EnvName(ImageRef(name, "")))
		})
	}
}

// TestImageRef verifies the default tag is applied.
func TestImageRef(t *testing.T) {
	assert.Equal(t, "dockenv-myenv:latest", ImageRef("myenv", ""))
	assert.Equal(t, "dockenv-myenv:v2", ImageRef("myenv", "v2"))
}

// TestValidateName covers the Docker repository component grammar.
func TestValidateName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"myenv", false},
		{"my-env", false},
		{"my_env.2", false},
		{"", true},
		{"MyEnv", true},
		{"-env", true},
		{"env-", true},
		{"my--env", true},
		{"my env", true},
		{"env:tag", true},
		{"a/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestFindImage mirrors the lookup scenarios of the legacy tool and
// guards against prefix collisions.
func TestFindImage(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		images := imagesWithTags(
			[]string{"python3:latest"},
			[]string{"dockenv-bbb:latest", "dockenv-aaa:latest"},
			[]string{"dockenv-ccc:latest"},
		)
		img, ok := FindImage(images, "dockenv-aaa", "")
		require.True(t, ok)
		assert.Equal(t, images[1].ID, img.ID)
	})

	t.Run("found with tag", func(t *testing.T) {
		images := imagesWithTags(
			[]string{"python3:latest"},
			[]string{"dockenv-bbb:latest", "dockenv-aaa:mytag"},
			[]string{"dockenv-ccc:latest"},
		)
		_, ok := FindImage(images, "dockenv-aaa", "mytag")
		assert.True(t, ok)
	})

	t.Run("prefix collision not found", func(t *testing.T) {
		images := imagesWithTags(
			[]string{"python3:latest"},
			[]string{"dockenv-aaa:latest", "dockenv-bbb:latest"},
			[]string{"dockenv-cccc:latest"},
		)
		_, ok := FindImage(images, "dockenv-ccc", "")
		assert.False(t, ok)
	})

	t.Run("different tag", func(t *testing.T) {
		images := imagesWithTags(
			[]string{"python3:latest"},
			[]string{"dockenv-aaa:latest", "dockenv-ccc:badtag"},
			[]string{"dockenv-cccc:latest"},
		)
		_, ok := FindImage(images, "dockenv-ccc", "mytag")
		assert.False(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		_, ok := FindImage(nil, "dockenv-aaa", "")
		assert.False(t, ok)
	})

	t.Run("untagged images ignored", func(t *testing.T) {
		images := imagesWithTags(nil, []string{})
		_, ok := FindImage(images, "dockenv-aaa", "")
		assert.False(t, ok)
	})
}

// TestListEnvs verifies filtering, de-duplication and ordering.
func TestListEnvs(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	images := []Image{
		{ID: "sha256:1", Tags: []string{"python:3"}},
		{ID: "sha256:2", Tags: []string{"dockenv-zeta:latest"}, Size: 10, CreatedAt: created},
		{ID: "sha256:3", Tags: []string{"dockenv-alpha:latest", "dockenv-alpha:v2"}},
		{ID: "sha256:4", Tags: []string{"dockenv-zeta:latest"}},
		{ID: "sha256:5", Tags: []string{"dockenv-:latest", "notdockenv-x:latest"}},
	}

	envs := ListEnvs(images)

	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"alpha", "alpha:v2", "zeta"}, names)

	zeta := envs[2]
	assert.Equal(t, "dockenv-zeta:latest", zeta.Tag)
	assert.Equal(t, "sha256:2", zeta.ImageID)
	assert.Equal(t, int64(10), zeta.Size)
	assert.Equal(t, created, zeta.CreatedAt)
}

// TestListEnvs_Empty verifies an empty (non-nil) slice for JSON output.
func TestListEnvs_Empty(t *testing.T) {
	envs := ListEnvs(nil)
	require.NotNil(t, envs)
	assert.Empty(t, envs)
}

// TestIsEnvTag accepts only "dockenv-" followed by a valid env name.
func TestIsEnvTag(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"dockenv-aaa:latest", true},
		{"dockenv-aaa", true},
		{"dockenv-aaa:v2", true},
		{"dockenv-:latest", false},
		{"dockenv-", false},
		{"dockenv-Bad:latest", false},
		{"dockenv-a-:latest", false},
		{"python:3", false},
		{"notdockenv-x:latest", false},
		{"localhost:5000/dockenv-aaa:latest", false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEnvTag(tt.ref))
		})
	}
}

// TestSplitRepoTag checks registry-port handling.
func TestSplitRepoTag(t *testing.T) {
	tests := []struct {
		ref, repo, tag string
	}{
		{"dockenv-a", "dockenv-a", "latest"},
		{"dockenv-a:v1", "dockenv-a", "v1"},
		{"localhost:5000/dockenv-a", "localhost:5000/dockenv-a", "latest"},
		{"localhost:5000/dockenv-a:v1", "localhost:5000/dockenv-a", "v1"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			repo, tag := SplitRepoTag(tt.ref)
			assert.Equal(t, tt.repo, repo)
			assert.Equal(t, tt.tag, tag)
		})
	}
}

// TestContainerMatchesImage ensures containers of a longer-named env are
// not treated as belonging to a shorter one.
func TestContainerMatchesImage(t *testing.T) {
	assert.True(t, ContainerMatchesImage("dockenv-aaa", "dockenv-aaa"))
	assert.True(t, ContainerMatchesImage("dockenv-aaa:latest", "dockenv-aaa"))
	assert.True(t, ContainerMatchesImage("dockenv-aaa:v2", "dockenv-aaa"))
	assert.False(t, ContainerMatchesImage("dockenv-aaaa:latest", "dockenv-aaa"))
	assert.False(t, ContainerMatchesImage("dockenv-aa", "dockenv-aaa"))
	assert.False(t, ContainerMatchesImage("sha256:abcdef", "dockenv-aaa"))
}

// TestContainer_ShortID verifies abbreviation of long and short IDs.
func TestContainer_ShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", Container{ID: "0123456789abcdef"}.ShortID())
	assert.Equal(t, "abc", Container{ID: "abc"}.ShortID())
}

// TestCLIError verifies error formatting and unwrapping.
func TestCLIError(t *testing.T) {
	t.Run("without wrapped error", func(t *testing.T) {
		err := NewCLIError(ExitEnvNotFound, "env not found")
		assert.Equal(t, "env not found", err.Error())
		assert.Equal(t, ExitEnvNotFound, err.Code)
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitDockerNotRunning, "Docker not running", inner)
		assert.Equal(t, "Docker not running: connection refused", err.Error())
		assert.True(t, errors.Is(err, inner))
	})

	t.Run("errors.As through fmt wrapping", func(t *testing.T) {
		var target *CLIError
		wrapped := errors.Join(errors.New("context"), NewCLIError(ExitEnvExists, "exists"))
		require.True(t, errors.As(wrapped, &target))
		assert.Equal(t, ExitEnvExists, target.Code)
	})
}
