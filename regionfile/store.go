package regionfile

import "github.com/kjk/retatomic/retained"

// Store is a retained.Store whose pages live in a File
type Store[T any] struct {
	*retained.Store[T]
	File *File
}

// OpenStore opens (or creates) a region file sized for T and
// recovers the store in it
func OpenStore[T any](path string, def T, opts *retained.Options) (*Store[T], error) {
	f, err := Open(path, retained.RegionSize[T]())
	if err != nil {
		return nil, err
	}
	s, err := retained.NewInRegion(f.Bytes(), def, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Store[T]{
		Store: s,
		File:  f,
	}, nil
}

// Close releases the store, syncs and unmaps the file.
// The store must not be used after Close.
func (s *Store[T]) Close() error {
	if s.File.Bytes() == nil {
		return nil
	}
	s.Store.Close()
	errSync := s.File.Sync()
	errClose := s.File.Close()
	if errSync != nil {
		return errSync
	}
	return errClose
}
