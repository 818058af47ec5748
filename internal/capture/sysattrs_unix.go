//go:build !windows

package capture

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the child in a new process group so the
// termination sequencer can signal the group as a whole.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
