package walk

import "fmt"

// ReadDirError reports a directory that could not be enumerated. Only the
// subtree below Path is abandoned.
type ReadDirError struct {
	Path string
	Err  error
}

func (e *ReadDirError) Error() string {
	return fmt.Sprintf("read directory %q: %v", e.Path, e.Err)
}

func (e *ReadDirError) Unwrap() error { return e.Err }

// TaskError reports a failure confined to the task evaluating Path.
type TaskError struct {
	Path string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("evaluate %q: %v", e.Path, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
