// Package console is the interactive menu in front of the desk service.
// Each numbered selection maps to exactly one service call; nothing is
// saved implicitly on exit.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-hotel-desk/internal/frontdesk"
	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
)

const Title = "LANGHAM Hotel Management System"

var errInputClosed = errors.New("input closed")

type Console struct {
	svc *frontdesk.Service
	in  *bufio.Scanner
	out io.Writer
}

func New(svc *frontdesk.Service, in io.Reader, out io.Writer) *Console {
	return &Console{svc: svc, in: bufio.NewScanner(in), out: out}
}

// Run shows the menu until the operator exits, input ends or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		c.menu()
		choice, err := c.prompt("Select an option: ")
		if err != nil {
			return c.closed(err)
		}
		if choice == "0" {
			c.printf("Thank you for using %s. Goodbye!\n", Title)
			return nil
		}
		if err := c.dispatch(ctx, choice); err != nil {
			return c.closed(err)
		}
	}
}

func (c *Console) closed(err error) error {
	if errors.Is(err, errInputClosed) {
		c.printf("\nInput closed. Goodbye!\n")
		return nil
	}
	return err
}

func (c *Console) menu() {
	c.printf("\n=== %s ===\n", Title)
	c.printf("1. Register New Room\n")
	c.printf("2. Remove Room\n")
	c.printf("3. Show All Room Details\n")
	c.printf("4. Book a Room\n")
	c.printf("5. View Room Booking Status\n")
	c.printf("6. Generate Invoice & Release Room\n")
	c.printf("7. Save Booking Data to File\n")
	c.printf("8. Read Bookings from File\n")
	c.printf("9. Backup Booking File and Clear Data\n")
	c.printf("0. Exit\n")
}

func (c *Console) dispatch(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		return c.registerRoom()
	case "2":
		return c.removeRoom()
	case "3":
		c.showRooms()
	case "4":
		return c.bookRoom()
	case "5":
		c.showStatus()
	case "6":
		return c.release()
	case "7":
		c.save(ctx)
	case "8":
		c.load(ctx)
	case "9":
		c.backup(ctx)
	default:
		c.printf("Invalid selection. Please try again.\n")
	}
	return nil
}

func (c *Console) registerRoom() error {
	id, err := c.prompt("Enter the room ID: ")
	if err != nil {
		return err
	}
	if id == "" {
		c.fail(hotel.Errorf(hotel.KindValidation, "Room ID cannot be empty."))
		return nil
	}
	if _, err := c.svc.Room(id); err == nil {
		c.printf("Room %s is already registered.\n", id)
		return nil
	}

	category, err := c.prompt("Enter room category (e.g., Standard, Suite): ")
	if err != nil {
		return err
	}
	rawRate, err := c.prompt("Enter room rate (per night): ")
	if err != nil {
		return err
	}
	rate, perr := strconv.ParseFloat(rawRate, 64)
	if perr != nil {
		c.fail(hotel.Errorf(hotel.KindValidation, "Room rate must be a number, got %q.", rawRate))
		return nil
	}
	amenities, err := c.prompt("List amenities (separated by commas): ")
	if err != nil {
		return err
	}

	if _, err := c.svc.RegisterRoom(id, category, rate, hotel.ParseAmenities(amenities)); err != nil {
		c.fail(err)
		return nil
	}
	c.printf("Room %s successfully registered.\n", id)
	return nil
}

func (c *Console) removeRoom() error {
	id, err := c.prompt("Enter the room ID to delete: ")
	if err != nil {
		return err
	}
	if err := c.svc.RemoveRoom(id); err != nil {
		c.fail(err)
		return nil
	}
	c.printf("Room %s has been deleted.\n", id)
	return nil
}

func (c *Console) showRooms() {
	rooms := c.svc.Rooms()
	if len(rooms) == 0 {
		c.printf("No rooms have been registered.\n")
		return
	}
	c.printf("\nRegistered Rooms:\n")
	for _, r := range rooms {
		c.printf("Room ID: %s, Category: %s, Rate: $%.2f, Amenities: %s\n",
			r.ID, r.Category, r.Rate, strings.Join(r.Amenities, ", "))
	}
}

func (c *Console) bookRoom() error {
	id, err := c.prompt("Enter the room ID to book: ")
	if err != nil {
		return err
	}
	if id == "" {
		c.fail(hotel.Errorf(hotel.KindValidation, "Room ID cannot be empty."))
		return nil
	}
	if _, err := c.svc.Room(id); err != nil {
		c.fail(err)
		return nil
	}
	if guest, ok := c.svc.GuestOf(id); ok {
		c.printf("Room %s is already booked for %s.\n", id, guest)
		return nil
	}

	guest, err := c.prompt("Enter the guest's name: ")
	if err != nil {
		return err
	}
	out, err := c.svc.BookRoom(id, guest)
	if err != nil {
		c.fail(err)
		return nil
	}
	if !out.Booked {
		c.printf("Room %s is already booked for %s.\n", id, out.Guest)
		return nil
	}
	c.printf("Room %s successfully booked for %s.\n", id, out.Guest)
	return nil
}

func (c *Console) showStatus() {
	bookings := c.svc.Status()
	if len(bookings) == 0 {
		c.printf("No rooms are currently booked.\n")
		return
	}
	c.printf("\nCurrent Bookings:\n")
	for _, b := range bookings {
		c.printf("Room ID: %s, Guest: %s\n", b.RoomID, b.Guest)
	}
}

func (c *Console) release() error {
	id, err := c.prompt("Enter the room ID to release: ")
	if err != nil {
		return err
	}
	inv, err := c.svc.ReleaseRoom(id)
	if err != nil {
		c.fail(err)
		return nil
	}
	c.printf("Invoice for %s:\n", inv.Guest)
	c.printf("Room ID: %s, Total Amount: $%.2f\n", inv.RoomID, inv.Total)
	c.printf("Room %s is now available for booking.\n", inv.RoomID)
	return nil
}

func (c *Console) save(ctx context.Context) {
	saved, err := c.svc.Save(ctx)
	switch {
	case err != nil:
		c.fail(err)
	case !saved:
		c.printf("No bookings to save.\n")
	default:
		c.printf("Booking data saved to %s.\n", c.svc.Target())
	}
}

func (c *Console) load(ctx context.Context) {
	bookings, err := c.svc.Load(ctx)
	if err != nil {
		c.fail(err)
		return
	}
	if len(bookings) == 0 {
		c.printf("No bookings found in %s.\n", c.svc.Target())
		return
	}
	c.printf("\nBookings in %s:\n", c.svc.Target())
	for _, b := range bookings {
		c.printf("Room ID: %s, Guest: %s\n", b.RoomID, b.Guest)
	}
}

func (c *Console) backup(ctx context.Context) {
	backup, err := c.svc.BackupAndClear(ctx)
	switch {
	case err != nil:
		c.fail(err)
	case backup == "":
		c.printf("No data to backup in %s.\n", c.svc.Target())
	default:
		c.printf("Data backed up to %s. Original file cleared.\n", backup)
	}
}

func (c *Console) prompt(label string) (string, error) {
	c.printf("%s", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) fail(err error) {
	c.printf("Error: %s\n", err.Error())
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
