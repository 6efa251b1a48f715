package models

import "time"

// Book is the unit of ownership and visibility. UserID is set on creation
// and never changes.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	UserID      string    `json:"userId"`
	IsPublic    bool      `json:"isPublic"`
	FileURL     string    `json:"fileUrl,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	FileKey     string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Owner is filled only by listings that join users.
	Owner *BookOwner `json:"owner,omitempty"`
}

// BookOwner is the owner projection shown next to public books.
type BookOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HasFile reports whether a blob is attached to the book.
func (b *Book) HasFile() bool {
	return b.FileURL != ""
}

// BookPatch lists the fields an owner may change. Nil means "keep".
type BookPatch struct {
	Title       *string
	Author      *string
	Description *string
	IsPublic    *bool
}

// Empty reports whether the patch changes no metadata field.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil && p.IsPublic == nil
}

// Apply copies the set fields of p onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.IsPublic != nil {
		b.IsPublic = *p.IsPublic
	}
}

// StoredFile is what the blob host hands back for an uploaded file.
type StoredFile struct {
	URL  string
	Key  string
	Name string
}
