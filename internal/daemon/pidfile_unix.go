//go:build !windows

package daemon

import "syscall"

// isRunning reports whether the recorded process is still alive.
func (p *PIDFile) isRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	// Signal 0 tests if the process exists without sending a signal.
	err = syscall.Kill(pid, 0)
	return pid, err == nil
}
