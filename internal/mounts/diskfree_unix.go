// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package mounts

import "golang.org/x/sys/unix"

// freeDiskBytes returns the bytes available to unprivileged processes on the
// filesystem containing path.
func freeDiskBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
