// Package build holds build-time version information injected via ldflags.
//
// To inject values at build time:
//
//	go build -ldflags "-X github.com/yt605155624/Parakeet/cmd/ge2e/internal/build.Version=v1.0.0 \
//	  -X github.com/yt605155624/Parakeet/cmd/ge2e/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/yt605155624/Parakeet/cmd/ge2e/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package build

import (
	"fmt"
	"runtime"

	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

// These variables are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the version report in structured form.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	ONNX    bool   `json:"onnx" yaml:"onnx"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		ONNX:    voiceprint.ONNXAvailable,
	}
}

// String returns a formatted version string.
func String() string {
	return fmt.Sprintf("ge2e %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
