// Package common holds names shared by the autopunch daemon, its CLI client
// and the native messaging host.
package common

const (
	// AppName names the config directory, the pipe and the binary.
	AppName = "autopunch"

	// SocketFileName is the daemon control socket inside the config dir.
	SocketFileName = "autopunch.sock"

	// LogFileName is the daemon log inside the config dir.
	LogFileName = "autopunch.log"

	// EnvFileName is the dotenv file read from the config dir and the
	// working directory.
	EnvFileName = ".env"

	// ArtifactDirName holds page snapshots and the challenge image.
	ArtifactDirName = "artifacts"
)
