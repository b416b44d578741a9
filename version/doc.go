// Package version reports the lima build version and the User-Agent sent
// by the HTTP transport.
//
// The version can be pinned at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/lima/version.Version=1.0.0"
//
// Otherwise it is read from the module build info of the importing binary.
package version
