//go:build windows

package common

import (
	"os"
	"strings"
)

// DefaultPipeName is the default name for the Windows named pipe.
const DefaultPipeName = AppName

const pipePrefix = `\\.\pipe\`

// DefaultPipePath returns \\.\pipe\autopunch.
func DefaultPipePath() string {
	return pipePrefix + DefaultPipeName
}

// PipePath returns the daemon's named pipe, honouring AUTOPUNCH_PIPE_NAME
// as either a bare name or a full pipe path.
func PipePath() string {
	if name := os.Getenv(PipeNameEnv); name != "" {
		if strings.HasPrefix(name, pipePrefix) {
			return name
		}
		return pipePrefix + name
	}
	return DefaultPipePath()
}
