// Package store persists the booking snapshot to a line-oriented text file.
//
// Each line is "room_id,guest_name". Guest names are not escaped, so a
// comma inside a name cannot round-trip: load splits on the first comma.
package store

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
)

const backupTimeLayout = "20060102_150405"

type FileStore struct {
	Path string
	Now  func() time.Time // defaults to time.Now
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, Now: time.Now}
}

func (s *FileStore) Target() string { return s.Path }

// Ensure creates an empty booking file when none exists yet.
func (s *FileStore) Ensure() error {
	f, err := os.OpenFile(s.Path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return hotel.Wrap(hotel.KindIO, "unable to create booking file "+s.Path, err)
	}
	return f.Close()
}

// Save overwrites the booking file with the snapshot. An empty snapshot is
// a no-op and reports saved=false. The content is written to a temporary
// file first and renamed over the target, so a failed write leaves the
// previous file intact.
func (s *FileStore) Save(_ context.Context, bookings []hotel.Booking) (saved bool, err error) {
	if len(bookings) == 0 {
		return false, nil
	}

	mode, err := s.targetMode()
	if err != nil {
		return false, err
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return false, hotel.Wrap(hotel.KindIO, "unable to open booking file for writing", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, b := range bookings {
		if _, err = fmt.Fprintf(w, "%s,%s\n", b.RoomID, b.Guest); err != nil {
			_ = tmp.Close()
			return false, hotel.Wrap(hotel.KindIO, "unable to write booking file", err)
		}
	}
	if err = w.Flush(); err != nil {
		_ = tmp.Close()
		return false, hotel.Wrap(hotel.KindIO, "unable to write booking file", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return false, hotel.Wrap(hotel.KindIO, "unable to write booking file", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, hotel.Wrap(hotel.KindIO, "unable to write booking file", err)
	}
	if err = tmp.Close(); err != nil {
		return false, hotel.Wrap(hotel.KindIO, "unable to write booking file", err)
	}
	if err = os.Rename(tmpName, s.Path); err != nil {
		return false, hotel.Wrap(hotel.KindIO, "unable to replace booking file", err)
	}
	return true, nil
}

// targetMode returns the permissions the replacement file must carry. An
// existing target has to be writable, as it would be for an in-place write.
func (s *FileStore) targetMode() (os.FileMode, error) {
	fi, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0o644, nil
		}
		return 0, hotel.Wrap(hotel.KindIO, "unable to inspect booking file", err)
	}
	f, err := os.OpenFile(s.Path, os.O_WRONLY, 0)
	if err != nil {
		return 0, hotel.Wrap(hotel.KindIO, "unable to open booking file for writing", err)
	}
	_ = f.Close()
	return fi.Mode().Perm(), nil
}

// Load reads the booking file. A missing file yields no bookings.
func (s *FileStore) Load(_ context.Context) ([]hotel.Booking, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []hotel.Booking{}, nil
		}
		return nil, hotel.Wrap(hotel.KindIO, "unable to open booking file for reading", err)
	}
	defer f.Close()

	out, err := Parse(f)
	if err != nil {
		return nil, hotel.Wrap(hotel.KindIO, "unable to read booking file", err)
	}
	return out, nil
}

// Parse decodes booking lines. Blank lines, lines without a comma and lines
// with an empty room id or guest are skipped.
func Parse(r io.Reader) ([]hotel.Booking, error) {
	out := []hotel.Booking{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		id, guest, ok := strings.Cut(line, ",")
		if !ok || id == "" || guest == "" {
			continue
		}
		out = append(out, hotel.Booking{RoomID: id, Guest: guest})
	}
	return out, sc.Err()
}

// BackupName returns the backup file name for the booking file at t.
func (s *FileStore) BackupName(t time.Time) string {
	base := filepath.Base(s.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(s.Path), fmt.Sprintf("Backup_%s_%s.txt", base, t.Format(backupTimeLayout)))
}

// BackupAndClear copies the booking file to a timestamped backup and then
// truncates it. A missing or empty file returns "" without touching disk.
// The original is only truncated after the backup has been fully written.
func (s *FileStore) BackupAndClear(_ context.Context) (string, error) {
	fi, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", hotel.Wrap(hotel.KindIO, "unable to inspect booking file", err)
	}
	if fi.Size() == 0 {
		return "", nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	backup := s.BackupName(now())
	if err := copyFile(s.Path, backup); err != nil {
		return "", err
	}
	if err := os.Truncate(s.Path, 0); err != nil {
		return "", hotel.Wrap(hotel.KindIO, "backup written but booking file could not be cleared", err)
	}
	return backup, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return hotel.Wrap(hotel.KindIO, "unable to open booking file for backup", err)
	}
	defer in.Close()

	// O_EXCL: never clobber an earlier backup taken in the same second.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return hotel.Wrap(hotel.KindIO, "unable to create backup file "+dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = hotel.Wrap(hotel.KindIO, "unable to write backup file "+dst, cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return hotel.Wrap(hotel.KindIO, "unable to write backup file "+dst, err)
	}
	if err = out.Sync(); err != nil {
		return hotel.Wrap(hotel.KindIO, "unable to write backup file "+dst, err)
	}
	return nil
}
