//go:build windows

package daemon

import (
	"os"
	"syscall"
)

// isRunning reports whether the recorded process is still alive. On
// Windows FindProcess always succeeds, so probe with a zero signal.
func (p *PIDFile) isRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	err = proc.Signal(syscall.Signal(0))
	return pid, err == nil
}
