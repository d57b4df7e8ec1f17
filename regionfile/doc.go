/*
Package regionfile provides memory that survives process crashes: a file
mapped into memory with MAP_SHARED. Writes to the mapping land in the page
cache immediately, so a crash, kill or panic of the process doesn't lose
them. Sync (msync) makes them durable across an OS crash too.

It is the backing store for retained.NewInRegion:

	s, err := regionfile.OpenStore(path, defaultSettings, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Scratchpad().Volume = 7
	s.Commit()

A file is created atomically at its full size (temp file, sync, link,
sync dir) so a crash during creation never leaves a short file behind.
Creation never replaces an existing file, so two processes racing to
create it end up opening the same one. The
file is locked with flock while open, a second Open of the same file fails
with ErrLocked.
*/
package regionfile
