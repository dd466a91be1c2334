package ezerr

import (
	"context"
	"path/filepath"
	"runtime"
)

const unknownSite = "???"

// CallSite identifies where a report was requested.
type CallSite struct {
	File     string // base name only
	Function string // fully-qualified function name
	Line     int
}

// Here captures the call site of its caller.
func Here() CallSite {
	return callerAt(2)
}

// At builds a CallSite explicitly. file is reduced to its base name.
func At(file, function string, line int) CallSite {
	site := CallSite{Function: function, Line: line}
	if file != "" {
		site.File = filepath.Base(file)
	}
	return site.normalized()
}

func callerAt(skip int) CallSite {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallSite{}.normalized()
	}
	function := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
	}
	return At(file, function, line)
}

func (s CallSite) normalized() CallSite {
	if s.File == "" || s.File == "." {
		s.File = unknownSite
	}
	if s.Function == "" {
		s.Function = unknownSite
	}
	return s
}

type mainThreadKey struct{}

// WithMainThread marks ctx as the process's primary execution context.
// Reports made with the returned context (or its children) have their
// main-thread flag set.
func WithMainThread(ctx context.Context) context.Context {
	return context.WithValue(ctx, mainThreadKey{}, true)
}

// IsMainThread reports whether ctx was marked by WithMainThread.
func IsMainThread(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	marked, _ := ctx.Value(mainThreadKey{}).(bool)
	return marked
}

// WithoutMainThread clears the main-thread mark, for contexts handed to
// goroutines started from the primary one.
func WithoutMainThread(ctx context.Context) context.Context {
	return context.WithValue(ctx, mainThreadKey{}, false)
}
