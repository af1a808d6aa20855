package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamped(settings ...debug.BuildSetting) func() (*debug.BuildInfo, bool) {
	return func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.2",
			Main:      debug.Module{Path: "github.com/standardbeagle/i18nsync", Version: "(devel)"},
			Settings:  settings,
		}, true
	}
}

func TestReadBuild_VCSStamp(t *testing.T) {
	b := readBuild(stamped(
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	))

	assert.Equal(t, "0123456789ab", b.commit)
	assert.Equal(t, "2026-10-01T12:00:00Z", b.date)
	assert.Equal(t, "i18nsync 0.2.0 (commit: 0123456789ab-dirty, built: 2026-10-01T12:00:00Z)", b.full())
	assert.NotEmpty(t, b.id)
}

func TestReadBuild_NoBuildInfo(t *testing.T) {
	b := readBuild(func() (*debug.BuildInfo, bool) { return nil, false })
	assert.Equal(t, "i18nsync 0.2.0 (commit: unknown, built: development)", b.full())
	assert.NotEmpty(t, b.id)
}

func TestReadBuild_LDFlagsWin(t *testing.T) {
	oldCommit, oldDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = oldCommit, oldDate })
	GitCommit, BuildDate = "abc123", "2026-10-17"

	b := readBuild(stamped(debug.BuildSetting{Key: "vcs.revision", Value: "ffffffffffffffff"}))
	assert.Equal(t, "abc123", b.commit)
	assert.Equal(t, "2026-10-17", b.date)
}

func TestBuildID_ChangesWithRevision(t *testing.T) {
	a := readBuild(stamped(debug.BuildSetting{Key: "vcs.revision", Value: "aaaa"}))
	b := readBuild(stamped(debug.BuildSetting{Key: "vcs.revision", Value: "bbbb"}))
	assert.NotEqual(t, a.id, b.id)

	// stable across calls
	assert.Equal(t, BuildID(), BuildID())
	assert.Equal(t, Version, Info())
}
