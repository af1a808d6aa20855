package version

import (
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Version is the semantic version of i18nsync
const Version = "0.2.0"

// Set at build time:
// go build -ldflags "-X github.com/standardbeagle/i18nsync/internal/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = ""
	BuildDate = ""
)

type build struct {
	commit   string
	date     string
	modified bool
	id       string
}

var (
	once    sync.Once
	current build
)

func load() build {
	once.Do(func() {
		current = readBuild(debug.ReadBuildInfo)
	})
	return current
}

// readBuild resolves commit and date from ldflags first, then from the VCS
// stamp the go tool embeds, and fingerprints the build
func readBuild(read func() (*debug.BuildInfo, bool)) build {
	b := build{commit: GitCommit, date: BuildDate}

	d := xxhash.New()
	d.WriteString(Version)
	d.WriteString(GitCommit)

	if info, ok := read(); ok {
		d.WriteString(info.GoVersion)
		d.WriteString(info.Main.Path)
		d.WriteString(info.Main.Version)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.commit == "" {
					b.commit = s.Value
					if len(b.commit) > 12 {
						b.commit = b.commit[:12]
					}
				}
			case "vcs.time":
				if b.date == "" {
					b.date = s.Value
				}
			case "vcs.modified":
				b.modified = s.Value == "true"
			default:
				continue
			}
			d.WriteString(s.Key)
			d.WriteString(s.Value)
		}
	}

	if b.commit == "" {
		b.commit = "unknown"
	}
	if b.date == "" {
		b.date = "development"
	}
	b.id = strconv.FormatUint(d.Sum64(), 16)
	return b
}

// Info returns the version string
func Info() string {
	return Version
}

// FullInfo returns version, commit and build date
func FullInfo() string {
	return load().full()
}

func (b build) full() string {
	commit := b.commit
	if b.modified {
		commit += "-dirty"
	}
	return "i18nsync " + Version + " (commit: " + commit + ", built: " + b.date + ")"
}

// BuildID fingerprints the running binary so an MCP client can tell a
// restarted server from an older build
func BuildID() string {
	return load().id
}
