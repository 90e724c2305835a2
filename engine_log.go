// engine_log.go - Subsystem loggers

package main

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var (
	bankLog   = commonlog.GetLogger("aw.bank")
	resLog    = commonlog.GetLogger("aw.res")
	vmLog     = commonlog.GetLogger("aw.vm")
	videoLog  = commonlog.GetLogger("aw.video")
	soundLog  = commonlog.GetLogger("aw.sound")
	engineLog = commonlog.GetLogger("aw.engine")
	scriptLog = commonlog.GetLogger("aw.script")
)

// configureLogging routes every aw.* logger through the simple backend.
// verbosity follows commonlog: 0 keeps notices and above, each step adds a
// level. An empty path logs to stderr.
func configureLogging(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}
