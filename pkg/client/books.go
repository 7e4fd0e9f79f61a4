package client

import (
	"strconv"

	"github.com/booklog/booklog/pkg/bookapi"
)

// BooksKey is the cache key prefix of every book query.
var BooksKey = []string{"books"}

// IDTarget addresses the book with the given id.
func IDTarget(id int64) Target {
	return WithParam("id", strconv.FormatInt(id, 10))
}

func BooksQuery(c *Client) QueryOptions[bookapi.BooksResponse] {
	return NewQuery(BooksKey, c, bookapi.ListBooks)
}

func BookQuery(c *Client, id int64) QueryOptions[bookapi.BookResponse] {
	return NewKeyedQuery(
		func(id int64) []string { return []string{BooksKey[0], strconv.FormatInt(id, 10)} },
		func(id int64) []Target { return []Target{IDTarget(id)} },
		c, bookapi.GetBook,
	)(id)
}

func CreateBook(c *Client) *Mutation[bookapi.CreateBookRequest, bookapi.BookResponse] {
	return NewMutation(c, bookapi.CreateBook)
}

// UpdateBook needs IDTarget(id) when mutating.
func UpdateBook(c *Client) *Mutation[bookapi.UpdateBookRequest, bookapi.BookResponse] {
	return NewMutation(c, bookapi.UpdateBook)
}

// DeleteBook needs IDTarget(id) when mutating.
func DeleteBook(c *Client) *Mutation[bookapi.NoBody, bookapi.MessageResponse] {
	return NewMutation(c, bookapi.DeleteBook)
}
