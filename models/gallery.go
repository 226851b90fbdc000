package models

import "time"

// Gallery is one titled image. Filename and URL are empty until the first upload.
type Gallery struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null;uniqueIndex:idx_galleries_title" json:"title"`
	Filename  string    `gorm:"size:255;not null;default:''" json:"filename"`
	URL       string    `gorm:"size:512;not null;default:''" json:"url"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Unicode case-folded Title, matched by search. Folding can expand a rune to three.
	TitleFolded string `gorm:"size:765;not null;default:'';index" json:"-"`
}

// GallerySummary is the projection returned by listings.
type GallerySummary struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// HasFile reports whether an upload is attached.
func (g *Gallery) HasFile() bool {
	return g.Filename != ""
}
