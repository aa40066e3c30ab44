package db

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Content block types understood by the renderer.
const (
	BlockHeading   = "heading"
	BlockParagraph = "paragraph"
	BlockList      = "list"
	BlockImage     = "image"
	BlockQuote     = "quote"
)

// ContentBlock is one structured unit of page body content.
type ContentBlock struct {
	Type  string   `json:"type"`
	Text  string   `json:"text,omitempty"`
	Level int      `json:"level,omitempty"`
	Items []string `json:"items,omitempty"`
	URL   string   `json:"url,omitempty"`
	Alt   string   `json:"alt,omitempty"`
}

// Page represents a marketing page addressed by slug.
type Page struct {
	gorm.Model
	Slug            string                              `gorm:"size:120;not null;uniqueIndex:idx_pages_slug_language"`
	Language        string                              `gorm:"size:10;not null;default:en;uniqueIndex:idx_pages_slug_language"`
	Title           string                              `gorm:"not null"`
	MetaTitle       string
	MetaDescription string
	MetaKeywords    string
	Blocks          datatypes.JSONSlice[ContentBlock]
	Active          bool `gorm:"index"`
}
