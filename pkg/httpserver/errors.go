package httpserver

import "errors"

// Run and Shutdown wrap their failures in one of these.
var (
	ErrStart          = errors.New("api server could not start")
	ErrAlreadyRunning = errors.New("api server is already running")
	ErrShutdown       = errors.New("api server did not drain before the shutdown timeout")
)
