// Package bookapi is the contract shared by the booklog server and its clients:
// wire types, endpoint descriptors, and input validation.
package bookapi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Status is the reading state of a book.
type Status string

const (
	StatusReading Status = "reading"
	StatusDone    Status = "done"
)

// Book is the wire representation of a book record. Stars and Review encode
// as null when absent.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Status    Status    `json:"status"`
	Stars     *int      `json:"stars"`
	Review    *string   `json:"review"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateBookRequest is the body of POST /books.
type CreateBookRequest struct {
	Title  string  `json:"title" validate:"required,max=255"`
	Author string  `json:"author" validate:"required,max=255"`
	Status *Status `json:"status,omitempty" validate:"omitempty,oneof=reading done"`
	Stars  *int    `json:"stars,omitempty" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review,omitempty" validate:"omitempty,max=1000"`
}

// StatusOrDefault returns the requested status, or reading when none was sent.
func (r CreateBookRequest) StatusOrDefault() Status {
	if r.Status == nil {
		return StatusReading
	}
	return *r.Status
}

// UnmarshalJSON rejects explicit nulls; optional fields are omitted instead.
func (r *CreateBookRequest) UnmarshalJSON(data []byte) error {
	if err := rejectNulls(data, "title", "author", "status", "stars", "review"); err != nil {
		return err
	}
	type plain CreateBookRequest
	return json.Unmarshal(data, (*plain)(r))
}

// UpdateBookRequest is the body of PUT /books/:id. Only fields present in the
// body are applied. A field cannot be cleared: an explicit null is rejected.
type UpdateBookRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Author *string `json:"author,omitempty" validate:"omitempty,min=1,max=255"`
	Status *Status `json:"status,omitempty" validate:"omitempty,oneof=reading done"`
	Stars  *int    `json:"stars,omitempty" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review,omitempty" validate:"omitempty,max=1000"`
}

// UnmarshalJSON rejects explicit nulls like CreateBookRequest.
func (r *UpdateBookRequest) UnmarshalJSON(data []byte) error {
	if err := rejectNulls(data, "title", "author", "status", "stars", "review"); err != nil {
		return err
	}
	type plain UpdateBookRequest
	return json.Unmarshal(data, (*plain)(r))
}

// rejectNulls reports every listed field that is present with a null value.
// Bodies that are not JSON objects are left to the regular decode.
func rejectNulls(data []byte, fields ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	errs := ValidationErrors{}
	for key, v := range raw {
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		// Keys match fields case-insensitively, as in encoding/json.
		for _, field := range fields {
			if strings.EqualFold(key, field) {
				errs[field] = "must not be null"
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BookResponse wraps a single book.
type BookResponse struct {
	Book Book `json:"book"`
}

// BooksResponse wraps the book list.
type BooksResponse struct {
	Books []Book `json:"books"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response. Error is a string, or
// a field->message object for validation failures.
type ErrorResponse struct {
	Error any `json:"error"`
}

// Ptr returns a pointer to v. Handy for building optional request fields.
func Ptr[T any](v T) *T {
	return &v
}
