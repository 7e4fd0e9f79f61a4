package shelf

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
)

const dateLayout = "2006-01-02"

func renderStars(stars *int) string {
	if stars == nil {
		return "No rating"
	}
	n := max(0, min(5, *stars))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// RenderList writes the summary line and a table of books.
func RenderList(w io.Writer, books []bookapi.Book, counts Counts) error {
	fmt.Fprintf(w, "Total: %d  Reading: %d  Done: %d\n\n", counts.Total, counts.Reading, counts.Done)

	if len(books) == 0 {
		_, err := fmt.Fprintln(w, "No books found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tSTATUS\tSTARS\tADDED")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Title, b.Author, b.Status, renderStars(b.Stars), b.CreatedAt.Local().Format(dateLayout))
	}
	return tw.Flush()
}

// RenderBook writes every field of one book.
func RenderBook(w io.Writer, b bookapi.Book) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", b.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", b.Title)
	fmt.Fprintf(tw, "Author:\t%s\n", b.Author)
	fmt.Fprintf(tw, "Status:\t%s\n", b.Status)
	fmt.Fprintf(tw, "Stars:\t%s\n", renderStars(b.Stars))
	if b.Review != nil && *b.Review != "" {
		fmt.Fprintf(tw, "Review:\t%s\n", *b.Review)
	}
	fmt.Fprintf(tw, "Added:\t%s\n", b.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", b.UpdatedAt.Local().Format(time.RFC3339))
	return tw.Flush()
}

// RenderFormError lists field problems in a stable order.
func RenderFormError(w io.Writer, err *FormError) {
	fields := make([]string, 0, len(err.Fields))
	for f := range err.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	fmt.Fprintln(w, "Please fix the following:")
	for _, f := range fields {
		fmt.Fprintf(w, "  %s %s\n", f, err.Fields[f])
	}
}
