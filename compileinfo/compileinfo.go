// Package compileinfo reports the module version and VCS state that a binary
// was built from.
package compileinfo

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
)

type CompileInfo struct {
	Package    string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.Package == "" {
		return "No build information is embedded in this binary."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "This %s binary (%s) was built with %s", c.Package, c.version(), c.GoVersion)
	if c.Commit != "" {
		fmt.Fprintf(&sb, " at commit %s at time %s", c.Commit, c.CommitTime)
	}
	sb.WriteString(".")
	if c.Modified {
		sb.WriteString(" Files in the repo were modified after that commit.")
	}

	return sb.String()
}

func (c CompileInfo) version() string {
	if c.Version == "" {
		return "(devel)"
	}

	return c.Version
}

// Get reads the build information embedded by the Go toolchain. Fields stay
// empty when the binary carries none, e.g., under go test.
func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	out.Version = z.Main.Version
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

// Fprint writes the build information for this binary to w.
func Fprint(w io.Writer) error {
	_, err := fmt.Fprintln(w, Get())
	return err
}

func PrintToStdErr() {
	Fprint(os.Stderr)
}
