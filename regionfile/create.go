package regionfile

import (
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

// createZeroed atomically creates a file of a given size filled with zeros.
// It never replaces an existing file: if path exists, it returns an error
// matching fs.ErrExist. On failure the temp file is removed.
func createZeroed(path string, size int64) error {
	dir, fName := filepath.Split(path)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if fName == "" {
		return &os.PathError{Op: "create", Path: path, Err: os.ErrInvalid}
	}

	tmpFile, err := os.CreateTemp(dir, fName)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	// after Link the file is reachable via path, the temp name is not needed
	defer func() {
		// ignoring error on this one
		_ = os.Remove(tmpPath)
	}()

	err = tmpFile.Truncate(size)
	if err != nil {
		_ = tmpFile.Close()
		return err
	}
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()
	if errSync != nil {
		return errSync
	}
	if errClose != nil {
		return errClose
	}

	// unlike Rename, Link fails if path exists so we never unlink
	// a file someone else has mapped
	err = os.Link(tmpPath, path)
	if err != nil {
		return err
	}
	// for extra protection against crashes elsewhere,
	// sync directory after link
	fdir, _ := os.Open(dir)
	if fdir != nil {
		// ignore errors as those are a nice have, not must have
		_ = fdir.Sync()
		_ = fdir.Close()
	}
	return nil
}
