// Package nlog is the engine's logger: synchronous, timestamped,
// depth-aware call sites. Unlike a long-running daemon, this engine
// embeds into a single process and is not expected to run for weeks,
// so multi-file page-buffer rotation is traded for one mutex-guarded
// writer; see DESIGN.md.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zhykzhykzhyk/polymer/cmn/mono"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChars = "IWE"

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	errOut  io.Writer = os.Stderr
	lastTS  int64
	toStderr     = false
	alsoStderr   = false
)

// SetOutput redirects info-level (and, unless overridden, error-level)
// log lines. Tests use this to capture output instead of scraping files.
func SetOutput(w io.Writer) {
	mu.Lock()
	out, errOut = w, w
	mu.Unlock()
}

// SetErrOutput redirects only warning/error severities.
func SetErrOutput(w io.Writer) {
	mu.Lock()
	errOut = w
	mu.Unlock()
}

func SetToStderr(also, only bool) {
	mu.Lock()
	alsoStderr, toStderr = also, only
	mu.Unlock()
}

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth+1, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 1, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 1, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 1, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 1, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth+1, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 1, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 1, format, args...) }

// Flush is a no-op placeholder kept for API parity with the original
// nlog: this implementation writes synchronously, so there is nothing
// buffered to push out. The `exit` argument is accepted but unused.
func Flush(_ ...bool) {}

// Since reports how long it's been since the last log line of any
// severity, used by callers that want to decide whether to emit a
// periodic heartbeat line.
func Since() time.Duration {
	mu.Lock()
	last := lastTS
	mu.Unlock()
	if last == 0 {
		return 0
	}
	return time.Duration(mono.NanoTime() - last)
}

func log(sev severity, depth int, format string, args ...any) {
	line := format1(sev, depth+1, format, args...)

	mu.Lock()
	defer mu.Unlock()

	lastTS = mono.NanoTime()
	if toStderr {
		os.Stderr.WriteString(line)
		return
	}
	if sev >= sevWarn {
		errOut.Write([]byte(line))
		if alsoStderr {
			os.Stderr.WriteString(line)
		}
		if errOut == out {
			return
		}
	}
	out.Write([]byte(line))
}

func format1(sev severity, depth int, format string, args ...any) string {
	var b strings.Builder
	b.WriteByte(sevChars[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')

	if _, fn, ln, ok := runtime.Caller(depth + 1); ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}

	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
