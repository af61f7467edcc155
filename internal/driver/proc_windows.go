//go:build windows

package driver

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr hides the console window the downloader binary would
// otherwise open on Windows.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
