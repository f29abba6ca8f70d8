// compileinfoprint is imported for the side effect of printing the compileinfo
// to os.Stderr as soon as a tool starts
package compileinfoprint

import "github.com/carbocation/scgenomisc/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
