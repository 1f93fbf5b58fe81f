// Package opener hands decrypted files to the desktop's default viewer.
package opener

import (
	"io"

	"github.com/cli/browser"
)

// Opener launches a viewer for an absolute plaintext path.
type Opener interface {
	Open(path string) error
}

// Func adapts a function to Opener.
type Func func(path string) error

// Open implements Opener.
func (f Func) Open(path string) error {
	return f(path)
}

// System opens files with the platform default application
// (xdg-open, open, or start).
type System struct{}

// NewSystem returns an opener whose launcher output is discarded.
func NewSystem() System {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return System{}
}

// Open implements Opener.
func (System) Open(path string) error {
	return browser.OpenFile(path)
}

// Nop never launches anything. Useful when only the path is wanted.
type Nop struct{}

// Open implements Opener.
func (Nop) Open(string) error {
	return nil
}
