package log

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
)

// SetDebug routes the log to stderr and enables the DEBUG level when debug is set.
func SetDebug(debug bool) {
	flag.Set("logtostderr", "true")

	if debug {
		flag.Set("v", "1")
	}
}

func Debugf(format string, args ...any) {
	if glog.V(1) {
		glog.InfoDepth(1, fmt.Sprintf("%-5s %s", "DEBUG", fmt.Sprintf(format, args...)))
	}
}

func Infof(format string, args ...any) {
	glog.InfoDepth(1, fmt.Sprintf("%-5s %s", "INFO", fmt.Sprintf(format, args...)))
}

func Warnf(format string, args ...any) {
	glog.WarningDepth(1, fmt.Sprintf("%-5s %s", "WARN", fmt.Sprintf(format, args...)))
}

func Errorf(format string, args ...any) {
	glog.ErrorDepth(1, fmt.Sprintf("%-5s %s", "ERROR", fmt.Sprintf(format, args...)))
}
