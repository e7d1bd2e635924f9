package config

import (
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoProfiles() *File {
	return &File{Profiles: []Profile{
		{Name: "Office", Connection: Connection{APIBaseURL: "https://a"}},
		{Name: "Lab", Connection: Connection{APIBaseURL: "https://b"}},
	}}
}

func TestSelectProfileExplicitName(t *testing.T) {
	p, err := SelectProfile(twoProfiles(), "lab")
	require.NoError(t, err)
	assert.Equal(t, "Lab", p.Name)
}

func TestSelectProfileUnknownName(t *testing.T) {
	_, err := SelectProfile(twoProfiles(), "dc2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dc2")
}

func TestSelectProfileSingleIsImplicit(t *testing.T) {
	f := &File{Profiles: []Profile{{Name: "Only"}}}
	p, err := SelectProfile(f, "")
	require.NoError(t, err)
	assert.Equal(t, "Only", p.Name)
}

func TestSelectProfileNonInteractiveNeedsFlag(t *testing.T) {
	restore := isInteractive
	isInteractive = func() bool { return false }
	defer func() { isInteractive = restore }()

	_, err := SelectProfile(twoProfiles(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--profile")
}

func TestSelectProfileInteractivePick(t *testing.T) {
	restoreTTY := isInteractive
	restoreForm := runSelectForm
	isInteractive = func() bool { return true }
	runSelectForm = func(_ string, _ []huh.Option[string], value *string) error {
		*value = "Lab"
		return nil
	}
	defer func() {
		isInteractive = restoreTTY
		runSelectForm = restoreForm
	}()

	p, err := SelectProfile(twoProfiles(), "")
	require.NoError(t, err)
	assert.Equal(t, "Lab", p.Name)
}
