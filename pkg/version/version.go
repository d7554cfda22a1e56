// Package version reports the build of the quizline binaries.
//
// Release builds stamp it through ldflags:
//
//	go build -ldflags "-X github.com/NicolasHaas/quizline/pkg/version.tag=v0.3.0
//	  -X github.com/NicolasHaas/quizline/pkg/version.commit=abc1234"
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	tag    = ""
	commit = ""
)

// String returns the tag, the commit, the module version recorded by the Go
// toolchain, or "dev", whichever is found first.
func String() string {
	switch {
	case tag != "":
		return tag
	case commit != "":
		return commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

// Banner is the one-line --version output for the named binary.
func Banner(binary string) string {
	return fmt.Sprintf("%s %s", binary, String())
}

// UserAgent identifies quizline in outgoing HTTP requests.
func UserAgent() string {
	return "quizline/" + String()
}
