//go:build !windows

package capture

import "syscall"

// Processes are launched in their own process group (see sysattrs_unix.go),
// so signals are delivered to the whole group and cover any children that
// inherited the output pipes.

func termProcess(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

func killProcess(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
