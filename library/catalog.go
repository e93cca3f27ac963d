package library

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const (
	catalogHeader      = "ID,Title,Author,Year,Copies"
	catalogHeaderToken = "ID"
	catalogMinFields   = 5
)

// Catalog is the book table, persisted as one delimited line per book.
type Catalog struct {
	path string
	log  *slog.Logger
}

// NewCatalog returns a store backed by the file at path.
func NewCatalog(path string, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{path: path, log: log.With("file", path)}
}

// Path returns the backing file.
func (c *Catalog) Path() string { return c.path }

// LoadAll reads every book in file order. A leading header is recognised by
// its first field, so headerless files parse from line one. Malformed lines
// are logged and skipped.
func (c *Catalog) LoadAll() ([]Book, error) {
	lines, err := readLines(c.path, c.log)
	if err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(lines))
	first := true
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := DecodeRecord(line)
		if first {
			first = false
			if fields[0] == catalogHeaderToken {
				continue
			}
		}
		b, err := parseBook(fields)
		if err != nil {
			c.log.Warn("skipping catalog line", "line", i+1, "reason", err)
			continue
		}
		books = append(books, b)
	}
	return books, nil
}

func parseBook(fields []string) (Book, error) {
	if len(fields) < catalogMinFields {
		return Book{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformed, len(fields), catalogMinFields)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id <= 0 {
		return Book{}, fmt.Errorf("%w: bad id %q", ErrMalformed, fields[0])
	}
	year, err := strconv.Atoi(fields[3])
	if err != nil {
		return Book{}, fmt.Errorf("%w: bad year %q", ErrMalformed, fields[3])
	}
	copies, err := strconv.Atoi(fields[4])
	if err != nil || copies < 0 {
		return Book{}, fmt.Errorf("%w: bad copies %q", ErrMalformed, fields[4])
	}
	return Book{ID: id, Title: fields[1], Author: fields[2], Year: year, Copies: copies}, nil
}

// PersistAll rewrites the whole file: header first, then one line per book.
func (c *Catalog) PersistAll(books []Book) error {
	lines := make([]string, len(books))
	for i, b := range books {
		lines[i] = EncodeRecord(Int(b.ID), Text(b.Title), Text(b.Author), Int(b.Year), Int(b.Copies))
	}
	if err := replaceFile(c.path, catalogHeader, lines); err != nil {
		return err
	}
	c.log.Debug("catalog persisted", "books", len(books))
	return nil
}

// NextBookID is one greater than the largest id present, or 1 for an empty
// catalog.
func NextBookID(books []Book) int {
	highest := 0
	for _, b := range books {
		if b.ID > highest {
			highest = b.ID
		}
	}
	return highest + 1
}

// FindBook returns the index of the book with id.
func FindBook(books []Book, id int) (int, bool) {
	for i := range books {
		if books[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// AdjustCopies adds delta to the copies of book id in place.
func AdjustCopies(books []Book, id, delta int) error {
	i, ok := FindBook(books, id)
	if !ok {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if books[i].Copies+delta < 0 {
		return fmt.Errorf("book %d has %d copies: %w", id, books[i].Copies, ErrWouldGoNegative)
	}
	books[i].Copies += delta
	return nil
}

// SearchBooks returns the books whose title contains q, ignoring case.
func SearchBooks(books []Book, q string) []Book {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []Book{}
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), q) {
			out = append(out, b)
		}
	}
	return out
}
