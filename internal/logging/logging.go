/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging holds the internal leveled logger shared by the dataport
// and stream packages.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Logger writes colored, leveled log lines with a source location prefix.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	internalLogger = &Logger{"", os.Stdout, 3}
	level          int
	debugMode      = false

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

func init() {
	level = LevelWarn
	if os.Getenv("DATAPORT_LOG_LEVEL") != "" {
		if n, err := strconv.Atoi(os.Getenv("DATAPORT_LOG_LEVEL")); err == nil {
			if n <= LevelNoPrint {
				level = n
			}
		}
	}

	if os.Getenv("DATAPORT_DEBUG_MODE") != "" {
		debugMode = true
	}
}

// SetLogLevel changes the internal logger's level. The default level is Warn.
// The process env `DATAPORT_LOG_LEVEL` could also set the log level.
func SetLogLevel(l int) {
	if l <= LevelNoPrint {
		level = l
	}
}

// SetDebugMode toggles contract-violation behavior: in debug mode violations
// panic, otherwise they are logged and ignored. The process env
// `DATAPORT_DEBUG_MODE` also enables it.
func SetDebugMode(on bool) {
	debugMode = on
}

// DebugMode reports whether contract violations are fatal.
func DebugMode() bool {
	return debugMode
}

// Default returns the process-wide logger.
func Default() *Logger {
	return internalLogger
}

// New creates a named logger writing to out (os.Stdout when nil).
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 3,
	}
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	if level > LevelError {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelError)+format+reset+"\n", a...)
}

func (l *Logger) Error(v interface{}) {
	if level > LevelError {
		return
	}
	fmt.Fprintln(l.out, l.prefix(LevelError), v, reset)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	if level > LevelWarn {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelWarn)+format+reset+"\n", a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	if level > LevelInfo {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelInfo)+format+reset+"\n", a...)
}

func (l *Logger) Info(v interface{}) {
	if level > LevelInfo {
		return
	}
	fmt.Fprintln(l.out, l.prefix(LevelInfo), v, reset)
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	if level > LevelDebug {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelDebug)+format+reset+"\n", a...)
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	if level > LevelTrace {
		return
	}
	fmt.Fprintf(l.out, l.prefix(LevelTrace)+format+reset+"\n", a...)
}

// Failf reports a caller contract violation. It panics in debug mode so
// misuse surfaces early, and logs at error level otherwise.
func (l *Logger) Failf(format string, a ...interface{}) {
	if debugMode {
		panic(fmt.Sprintf(format, a...))
	}
	l.Errorf(format, a...)
}

func (l *Logger) prefix(level int) string {
	var buffer [64]byte
	buf := bytes.NewBuffer(buffer[:0])
	_, _ = buf.WriteString(colors[level])
	_, _ = buf.WriteString(levelName[level])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.name)
	_ = buf.WriteByte(' ')
	return buf.String()
}

func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth)
	if !ok {
		file = "???"
		line = 0
	}
	return trimFile(file) + ":" + strconv.Itoa(line)
}

func trimFile(file string) string {
	n := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			n++
			if n >= 2 {
				return file[i+1:]
			}
		}
	}
	return file
}
