package retlog

import (
	"os"
	"path/filepath"
	"time"
)

// dailyFile is a file that is re-opened under a new name every day (UTC)
type dailyFile struct {
	dir    string
	prefix string

	// path of the current file
	path string
	day  int // YYYYMMDD format
	file *os.File
}

func dayFromTime(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func (f *dailyFile) pathFor(t time.Time) string {
	name := f.prefix + t.Format("2006-01-02") + ".txt"
	return filepath.Join(f.dir, name)
}

func (f *dailyFile) reopenIfNeeded(now time.Time) error {
	now = now.UTC()
	today := dayFromTime(now)
	if f.file != nil && f.day == today {
		return nil
	}
	if err := f.close(); err != nil {
		return err
	}
	// we can't assume that the dir for the file already exists
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return err
	}
	path := f.pathFor(now)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	f.file = file
	f.path = path
	f.day = today
	return nil
}

func (f *dailyFile) write(d []byte, now time.Time) error {
	if err := f.reopenIfNeeded(now); err != nil {
		return err
	}
	_, err := f.file.Write(d)
	return err
}

func (f *dailyFile) sync() error {
	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}

func (f *dailyFile) close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.day = 0
	return err
}
