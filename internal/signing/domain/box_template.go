package domain

import "fmt"

// BoxTemplate is where a signature goes on the source document. Coordinates
// are in PDF points from the page's bottom-left corner.
type BoxTemplate struct {
	Page       int
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Initials   bool // also collect initials
	DateMarker bool // stamp the signing date next to the box
}

func (b BoxTemplate) validate(field string, v *ValidationError) {
	if b.Page < 1 {
		v.Add(field+".page", "must be 1 or greater")
	}
	if b.X < 0 || b.Y < 0 {
		v.Add(field+".position", "must not be negative")
	}
	if b.Width <= 0 || b.Height <= 0 {
		v.Add(field+".size", "width and height must be positive")
	}
}

func (b BoxTemplate) String() string {
	return fmt.Sprintf("page %d (%.1f,%.1f %.1fx%.1f)", b.Page, b.X, b.Y, b.Width, b.Height)
}
