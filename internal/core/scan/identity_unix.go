//go:build !windows

package scan

import (
	"os"
	"syscall"
)

// identitySupported reports whether (dev, ino) identity is stable on this
// platform. True on all unix-like targets.
func identitySupported() bool { return true }

// fileIdentity extracts the (dev, ino) pair and hardlink count from a
// regular file's os.FileInfo.
func fileIdentity(info os.FileInfo) (identity, uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return identity{}, 0, false
	}
	return identity{dev: uint64(st.Dev), ino: st.Ino}, uint64(st.Nlink), true
}
