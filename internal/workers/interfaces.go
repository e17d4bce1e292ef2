// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface and a Workers aggregate that allows
// running multiple workers in a unified way.
package workers

// Worker is the interface implemented by any background worker. Run
// starts the worker's execution; implementations are expected to block
// for the duration of their work or spawn goroutines internally.
type Worker interface {
	Run()
}
