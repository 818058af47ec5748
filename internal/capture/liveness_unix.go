//go:build !windows

package capture

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"syscall"
)

// pidAlive probes a pid without blocking. A zombie still answers signal 0,
// so on Linux the /proc state is checked first and a zombie counts as exited.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if runtime.GOOS == "linux" && isZombieLinux(pid) {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// isZombieLinux returns true if /proc/<pid>/status reports state Z.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
