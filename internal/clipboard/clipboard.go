package clipboard

import (
	"github.com/atotto/clipboard"
)

// Reader reads text from a clipboard.
type Reader interface {
	ReadAll() (string, error)
}

// Writer writes text to a clipboard.
type Writer interface {
	WriteAll(text string) error
}

type ReadWriter interface {
	Reader
	Writer
}

// System is the operating system clipboard.
type System struct{}

func (System) ReadAll() (string, error) {
	return Paste()
}

func (System) WriteAll(text string) error {
	return Copy(text)
}

// Supported reports whether a clipboard utility is available on this system.
func Supported() bool {
	return !clipboard.Unsupported
}

// Paste reads text from the system clipboard
func Paste() (string, error) {
	return clipboard.ReadAll()
}

// Copy writes text to the system clipboard
func Copy(text string) error {
	return clipboard.WriteAll(text)
}
