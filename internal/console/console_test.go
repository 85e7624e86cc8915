package console

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ariefcatur/go-hotel-desk/internal/frontdesk"
	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	"github.com/ariefcatur/go-hotel-desk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func run(t *testing.T, lines ...string) (string, *frontdesk.Service, *store.FileStore) {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "LHMS_bookings.txt"))
	svc := frontdesk.New(hotel.New(), fs, nil, "hotel-desk", zap.NewNop())

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, New(svc, in, &out).Run(context.Background()))
	return out.String(), svc, fs
}

func TestConsole_CheckInCheckOut(t *testing.T) {
	out, svc, _ := run(t,
		"1", "101", "Standard", "100", "WiFi, TV",
		"3",
		"4", "101", "Alice",
		"2", "101",
		"6", "101",
		"2", "101",
		"0",
	)

	assert.Contains(t, out, "Room 101 successfully registered.")
	assert.Contains(t, out, "Room ID: 101, Category: Standard, Rate: $100.00, Amenities: WiFi, TV")
	assert.Contains(t, out, "Room 101 successfully booked for Alice.")
	assert.Contains(t, out, "Error: Room 101 is currently booked and cannot be deleted.")
	assert.Contains(t, out, "Invoice for Alice:\nRoom ID: 101, Total Amount: $100.00\nRoom 101 is now available for booking.")
	assert.Contains(t, out, "Room 101 has been deleted.")
	assert.Contains(t, out, "Goodbye!")
	assert.Empty(t, svc.Rooms())
}

func TestConsole_RegisterErrors(t *testing.T) {
	out, svc, _ := run(t,
		"1", "",
		"1", "7", "Suite", "abc",
		"1", "7", "Suite", "-10", "",
		"1", "7", "", "10", "",
		"1", "7", "Suite", "250", "",
		"1", "7",
		"0",
	)

	assert.Contains(t, out, "Error: Room ID cannot be empty.")
	assert.Contains(t, out, `Error: Room rate must be a number, got "abc".`)
	assert.Contains(t, out, "Error: Room rate must be a positive number.")
	assert.Contains(t, out, "Error: Room category cannot be empty.")
	assert.Contains(t, out, "Room 7 is already registered.")
	assert.Len(t, svc.Rooms(), 1)
}

func TestConsole_BookingFlow(t *testing.T) {
	out, svc, _ := run(t,
		"4", "404",
		"1", "5", "Standard", "80", "",
		"4", "5", "Bob",
		"4", "5",
		"5",
		"6", "9",
		"0",
	)

	assert.Contains(t, out, "Error: Room 404 does not exist.")
	assert.Contains(t, out, "Room 5 is already booked for Bob.")
	assert.Contains(t, out, "Current Bookings:\nRoom ID: 5, Guest: Bob")
	assert.Contains(t, out, "Error: Room 9 is not currently booked.")
	assert.Equal(t, []hotel.Booking{{RoomID: "5", Guest: "Bob"}}, svc.Status())
}

func TestConsole_FileOperations(t *testing.T) {
	out, _, fs := run(t,
		"7",
		"9",
		"8",
		"1", "101", "Standard", "100", "WiFi",
		"4", "101", "Alice",
		"7",
		"8",
		"9",
		"8",
		"0",
	)

	assert.Contains(t, out, "No bookings to save.")
	assert.Contains(t, out, "No data to backup in "+fs.Path+".")
	assert.Contains(t, out, "Booking data saved to "+fs.Path+".")
	assert.Contains(t, out, "Bookings in "+fs.Path+":\nRoom ID: 101, Guest: Alice")
	assert.Contains(t, out, "Original file cleared.")
	assert.Equal(t, 2, strings.Count(out, "No bookings found in "+fs.Path+"."))

	entries, err := os.ReadDir(filepath.Dir(fs.Path))
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "Backup_LHMS_bookings_") {
			backups++
		}
	}
	assert.Equal(t, 1, backups)
}

func TestConsole_InvalidSelectionAndEOF(t *testing.T) {
	out, _, _ := run(t, "42", "")

	assert.Contains(t, out, "Invalid selection. Please try again.")
	assert.Contains(t, out, "Input closed. Goodbye!")
}

func TestConsole_ExitDoesNotSave(t *testing.T) {
	_, _, fs := run(t,
		"1", "101", "Standard", "100", "",
		"4", "101", "Alice",
		"0",
	)

	_, err := os.Stat(fs.Path)
	assert.True(t, os.IsNotExist(err))
}
