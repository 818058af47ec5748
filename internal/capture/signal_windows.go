//go:build windows

package capture

// Windows has no graceful signal usable across process groups from here, so
// both steps of the escalation terminate the process directly. A pid that is
// already gone is not an error; that race is expected during shutdown.

func termProcess(pid int) error {
	return terminate(pid)
}

func killProcess(pid int) error {
	return terminate(pid)
}

func terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	h, err := openProcess(processTerminate, uint32(pid))
	if err != nil {
		// Process already gone.
		return nil
	}
	defer closeHandle(h)
	ret, _, callErr := procTerminateProcess.Call(uintptr(h), uintptr(1))
	if ret == 0 {
		return callErr
	}
	return nil
}
