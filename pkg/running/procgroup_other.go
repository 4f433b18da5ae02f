//go:build !unix

package running

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
