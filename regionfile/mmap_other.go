//go:build !unix

package regionfile

import "os"

const supported = false

func lock(f *os.File) error {
	return errNotSupported
}

func mmap(f *os.File, size int) ([]byte, error) {
	return nil, errNotSupported
}

func munmap(b []byte) error {
	return errNotSupported
}

func msync(b []byte) error {
	return errNotSupported
}
