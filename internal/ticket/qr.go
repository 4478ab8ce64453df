// Package ticket produces the scannable ticket artifact handed to a
// customer once a booking is paid.  The booking workflow depends only
// on the Generator interface and stores the returned path; rendering
// is a detail of the implementation.
package ticket

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// Request identifies the booking a ticket artifact is generated for.
type Request struct {
	BookingID  uint64
	CustomerID string
	EventTitle string
}

// Generator produces a ticket artifact and returns a storable
// reference path for it.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// QRGenerator renders ticket QR codes as PNG files under Dir.  The
// returned path is the web path served to clients, not the filesystem
// path.
type QRGenerator struct {
	Dir string // directory PNG files are written to, e.g. "qrcodes"
}

// NewQRGenerator returns a QRGenerator writing into dir.
func NewQRGenerator(dir string) *QRGenerator { return &QRGenerator{Dir: dir} }

// Generate encodes the booking reference into a QR PNG and returns its
// web path.  A random reference token is embedded so a ticket cannot
// be forged from the booking ID alone.
func (g *QRGenerator) Generate(_ context.Context, req Request) (string, error) {
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", g.Dir, err)
	}
	payload := fmt.Sprintf("Booking:%d|Ref:%s|Event:%s", req.BookingID, uuid.NewString(), req.EventTitle)
	name := fmt.Sprintf("Booking_%d.png", req.BookingID)
	if err := qrcode.WriteFile(payload, qrcode.Medium, 256, filepath.Join(g.Dir, name)); err != nil {
		return "", fmt.Errorf("write qr: %w", err)
	}
	return "/" + filepath.ToSlash(filepath.Join(g.Dir, name)), nil
}
