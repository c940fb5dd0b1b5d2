//go:build !unix

package command

import "os/exec"

// killProcessGroupOnCancel keeps the exec.CommandContext default of killing the process.
func killProcessGroupOnCancel(*exec.Cmd) {}
