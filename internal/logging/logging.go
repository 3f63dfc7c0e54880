// Package logging sends the standard logger to stdout and a size-capped log
// file.
package logging

import (
	"errors"
	"io"
	"log"
	"os"
	"sync"
)

// MaxSize is the file size at which the log is rotated.
const MaxSize = 5 * 1024 * 1024

// RotatingWriter appends to a file and rotates it to path+".1" once it grows
// past its limit. One backup is kept.
type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Open opens path for appending, rotating first if it is already over
// maxSize.
func Open(path string, maxSize int64) (*RotatingWriter, error) {
	if info, err := os.Stat(path); err == nil && info.Size() > maxSize {
		_ = os.Rename(path, path+".1")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return &RotatingWriter{file: f, path: path, size: size, maxSize: maxSize}, nil
}

// Setup points the standard logger at stdout and, when path is set, a
// rotating file. The returned closer is never nil.
func Setup(path string) (io.Closer, error) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if path == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	rw, err := Open(path, MaxSize)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rw))
	return rw, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	w.size += int64(n)

	if w.size > w.maxSize {
		if rerr := w.rotate(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return n, err
}

// rotate moves the current file aside and starts a new one. If the move
// fails the writer keeps appending to the current file and tries again after
// another maxSize bytes.
func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(w.path, w.path+".1"); err != nil {
		f, oerr := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if oerr != nil {
			return errors.Join(err, oerr)
		}
		w.file = f
		w.size = 0
		return err
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
