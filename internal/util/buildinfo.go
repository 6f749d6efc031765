package util

import "runtime/debug"

// VersionInfo describes the VCS state the Go toolchain recorded in the
// binary at build time.
type VersionInfo struct {
	Revision string
	Dirty    bool
}

// ReadVersion extracts the VCS revision baked into the binary. Binaries
// built outside a checkout report "unknown".
func ReadVersion() VersionInfo {
	v := VersionInfo{Revision: "unknown"}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Revision = s.Value
		case "vcs.modified":
			v.Dirty = s.Value == "true"
		}
	}
	return v
}
