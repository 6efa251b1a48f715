// Package models defines the client-side views of server resources.
package models

import (
	"fmt"
	"time"
)

// User is the identity returned by the auth endpoints.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Owner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	UserID      string    `json:"userId"`
	IsPublic    bool      `json:"isPublic"`
	FileURL     string    `json:"fileUrl,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Owner       *Owner    `json:"owner,omitempty"`
}

// Visibility is "public" or "private".
func (b Book) Visibility() string {
	if b.IsPublic {
		return "public"
	}
	return "private"
}

// String renders a one-line overview used by listings.
func (b Book) String() string {
	s := fmt.Sprintf("%s  %q by %s [%s]", b.ID, b.Title, b.Author, b.Visibility())
	if b.FileName != "" {
		s += " " + b.FileName
	}
	if b.Owner != nil {
		s += fmt.Sprintf(" (shared by %s)", b.Owner.Name)
	}
	return s
}

// BookPatch carries the fields to change. Nil fields are left as they are.
type BookPatch struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// NewBook describes an upload.
type NewBook struct {
	Title       string
	Author      string
	Description string
	IsPublic    bool
	// Path is the local file to attach. Empty means metadata only.
	Path string
}
