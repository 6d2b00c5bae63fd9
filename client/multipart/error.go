package multipart

import (
	"errors"
	"fmt"
)

var (
	ErrMustNotBeEmpty = errors.New("must not be empty")
	ErrFileRead       = errors.New("reading form file")
)

// FileError is recorded when a local file referenced by AppendFile
// cannot be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
