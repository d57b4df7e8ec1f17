package regionfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	ErrSizeMismatch = errors.New("regionfile: file has unexpected size")
	ErrLocked       = errors.New("regionfile: file is locked by another user")
	ErrClosed       = errors.New("regionfile: file is closed")

	errNotSupported = errors.New("regionfile: memory mapped files are only supported on unix")
)

// File is a file mapped into memory
type File struct {
	Path string

	file *os.File
	data []byte
}

// Open maps a file of a given size, creating it if it doesn't exist.
// An existing file must have exactly that size.
func Open(path string, size int) (*File, error) {
	if !supported {
		return nil, errNotSupported
	}
	if size <= 0 {
		return nil, fmt.Errorf("regionfile: invalid size %d", size)
	}
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		err = createZeroed(path, int64(size))
		// if someone else created it first, we open theirs
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err = lock(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: '%s': %w", ErrLocked, path, err)
	}
	// check the file we hold the lock on, not the one we saw in Stat
	if err = checkOpened(f, size); err != nil {
		_ = f.Close()
		return nil, err
	}
	data, err := mmap(f, size)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &File{
		Path: path,
		file: f,
		data: data,
	}, nil
}

func checkOpened(f *os.File, size int) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return &os.PathError{Op: "open", Path: f.Name(), Err: os.ErrInvalid}
	}
	if st.Size() != int64(size) {
		return fmt.Errorf("%w: '%s' is %d bytes, expected %d", ErrSizeMismatch, f.Name(), st.Size(), size)
	}
	return nil
}

// Bytes returns the mapped memory. It is valid until Close.
func (f *File) Bytes() []byte {
	return f.data
}

// Sync flushes the mapped memory to disk
func (f *File) Sync() error {
	if f.data == nil {
		return ErrClosed
	}
	return msync(f.data)
}

// Close unmaps the memory and closes the file. It doesn't Sync.
// Can be called multiple times.
func (f *File) Close() error {
	if f.data == nil {
		return nil
	}
	errUnmap := munmap(f.data)
	f.data = nil
	// closing the file releases the lock
	errClose := f.file.Close()
	if errUnmap != nil {
		return errUnmap
	}
	return errClose
}
