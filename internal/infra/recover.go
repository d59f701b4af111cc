package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RunRecoverable runs f and turns a panic into an error carrying the
// panicking frame.
func RunRecoverable(id string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			where := identifyPanic()
			log.Errorf(`Job "%s" panics with message: %v, %s`, id, r, where)
			err = fmt.Errorf("job %q panicked: %v at %s", id, r, where)
		}
	}()
	return f()
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
