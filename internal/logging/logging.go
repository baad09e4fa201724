// Package logging provides leveled, colored console output plus an
// error-only log file.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	debugTag = color.New(color.FgBlue).Sprint("DEBUG")
	infoTag  = color.New(color.FgGreen).Sprint("INFO")
	warnTag  = color.New(color.FgYellow).Sprint("WARN")
	errorTag = color.New(color.FgRed).Sprint("ERROR")

	mu      sync.Mutex
	errFile *log.Logger
)

// Init directs ERROR-level output to the given file in addition to the
// console. An empty path disables the file.
func Init(errorLogPath string) error {
	if errorLogPath == "" {
		return nil
	}
	f, err := os.OpenFile(errorLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	mu.Lock()
	errFile = log.New(f, "", log.LstdFlags)
	mu.Unlock()
	return nil
}

func Debugf(format string, args ...any) {
	log.Printf("%s: %s", debugTag, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any) {
	log.Printf("%s: %s", infoTag, fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...any) {
	log.Printf("%s: %s", warnTag, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("%s: %s", errorTag, msg)
	mu.Lock()
	if errFile != nil {
		errFile.Printf("ERROR: %s", msg)
	}
	mu.Unlock()
}
