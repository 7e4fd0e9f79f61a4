// Package shelf is the terminal front end of booklog: list arrangement,
// local form checks, rendering, and the commands that drive the API client.
package shelf

import (
	"fmt"
	"sort"

	"github.com/booklog/booklog/pkg/bookapi"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter selects books by status.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterReading Filter = "reading"
	FilterDone    Filter = "done"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterReading, FilterDone:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, reading or done)", s)
}

// SortBy orders the list view.
type SortBy string

const (
	SortTitle     SortBy = "title"
	SortAuthor    SortBy = "author"
	SortStars     SortBy = "stars"
	SortCreatedAt SortBy = "createdAt"
)

func ParseSort(s string) (SortBy, error) {
	switch by := SortBy(s); by {
	case SortTitle, SortAuthor, SortStars, SortCreatedAt:
		return by, nil
	}
	return "", fmt.Errorf("unknown sort %q (want title, author, stars or createdAt)", s)
}

// Counts summarizes the whole list, independent of the active filter.
type Counts struct {
	Total   int
	Reading int
	Done    int
}

func CountBooks(books []bookapi.Book) Counts {
	c := Counts{Total: len(books)}
	for _, b := range books {
		switch b.Status {
		case bookapi.StatusReading:
			c.Reading++
		case bookapi.StatusDone:
			c.Done++
		}
	}
	return c
}

// Arrange returns the books matching filter, sorted by. Titles and authors
// compare by the collation rules of lang. Equal keys keep their input order.
// The input slice is not modified.
func Arrange(books []bookapi.Book, filter Filter, by SortBy, lang language.Tag) []bookapi.Book {
	out := make([]bookapi.Book, 0, len(books))
	for _, b := range books {
		if filter == FilterAll || string(b.Status) == string(filter) {
			out = append(out, b)
		}
	}

	var less func(a, b bookapi.Book) bool
	switch by {
	case SortTitle:
		col := collate.New(lang)
		less = func(a, b bookapi.Book) bool { return col.CompareString(a.Title, b.Title) < 0 }
	case SortAuthor:
		col := collate.New(lang)
		less = func(a, b bookapi.Book) bool { return col.CompareString(a.Author, b.Author) < 0 }
	case SortStars:
		less = func(a, b bookapi.Book) bool { return starsOf(a) > starsOf(b) }
	default:
		less = func(a, b bookapi.Book) bool { return a.CreatedAt.After(b.CreatedAt) }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// starsOf treats an unrated book as zero stars.
func starsOf(b bookapi.Book) int {
	if b.Stars == nil {
		return 0
	}
	return *b.Stars
}
