package models

// Process is a running external download process.
//
// Lines yields merged stdout/stderr lines and is closed at stream end.
// Wait resolves once the process has exited. Terminate is idempotent
// and may be called concurrently with a Lines consumer.
type Process interface {
	Lines() <-chan string
	Wait() (exitCode int, err error)
	Terminate() error
	PID() int
}
