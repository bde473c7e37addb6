// Package version exposes the running binary's version derived from build
// metadata. Go 1.18+ embeds VCS info (git commit, dirty flag) into the
// binary via runtime/debug.BuildInfo, so no -ldflags are required.
package version

import "runtime/debug"

// AppName identifies this module in logs, health responses, and the
// dispatcher's outbound User-Agent.
const AppName = "homegraph-ingestor"

// GitCommit is the short git commit hash (8 chars) from build info, or
// "dev" when build info is unavailable (e.g. go test, non-VCS builds).
var GitCommit = initGitCommit()

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

// Full returns "homegraph-ingestor/<commit>" for logging and health output.
func Full() string {
	return AppName + "/" + GitCommit
}
