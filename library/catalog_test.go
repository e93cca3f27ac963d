package library

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCatalogLoadAll(t *testing.T) {
	path := writeFile(t, "books.txt", "ID,Title,Author,Year,Copies\r\n"+
		`1, "Clean Code", "Robert C. Martin", 2008, 4`+"\r\n"+
		"\r\n"+
		`2, "Short"`+"\n"+
		`x, "Bad Id", "Nobody", 2000, 1`+"\n"+
		`3, "Design Patterns", "Erich Gamma", 1994, 0`+"\n")

	books, err := NewCatalog(path, nil).LoadAll()
	require.NoError(t, err)

	want := []Book{
		{ID: 1, Title: "Clean Code", Author: "Robert C. Martin", Year: 2008, Copies: 4},
		{ID: 3, Title: "Design Patterns", Author: "Erich Gamma", Year: 1994, Copies: 0},
	}
	if diff := cmp.Diff(want, books); diff != "" {
		t.Fatalf("books mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogLoadAllWithoutHeader(t *testing.T) {
	path := writeFile(t, "books.txt", "\n"+`7, "Deep Learning", "Ian Goodfellow", 2016, 2`+"\n")

	books, err := NewCatalog(path, nil).LoadAll()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 7, books[0].ID)
}

func TestCatalogLoadAllSkipsOverlongLine(t *testing.T) {
	huge := `2, "` + strings.Repeat("x", maxLineBytes) + `", "Nobody", 2000, 1`
	path := writeFile(t, "books.txt", "ID,Title,Author,Year,Copies\n"+
		`1, "Clean Code", "Robert C. Martin", 2008, 4`+"\n"+
		huge+"\n"+
		`3, "Design Patterns", "Erich Gamma", 1994, 0`+"\n")

	books, err := NewCatalog(path, nil).LoadAll()
	require.NoError(t, err)
	ids := make([]int, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	assert.Equal(t, []int{1, 3}, ids)
}

func TestCatalogLoadAllMissingFile(t *testing.T) {
	_, err := NewCatalog(filepath.Join(t.TempDir(), "nope.txt"), nil).LoadAll()
	assert.True(t, errors.Is(err, ErrIO), "got %v", err)
}

func TestCatalogPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.txt")
	c := NewCatalog(path, nil)
	require.NoError(t, c.PersistAll(defaultBooks))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ID,Title,Author,Year,Copies\n1, \"C++ Programming Basics\", \"John Doe\", 2019, 5\n")

	books, err := c.LoadAll()
	require.NoError(t, err)
	if diff := cmp.Diff(defaultBooks, books); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Persisting what was loaded is byte-stable.
	require.NoError(t, c.PersistAll(books))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(again))
}

func TestNextBookID(t *testing.T) {
	assert.Equal(t, 1, NextBookID(nil))
	assert.Equal(t, 10, NextBookID([]Book{{ID: 3}, {ID: 9}, {ID: 2}}))
}

func TestAdjustCopies(t *testing.T) {
	books := []Book{{ID: 1, Copies: 1}}

	require.NoError(t, AdjustCopies(books, 1, -1))
	assert.Equal(t, 0, books[0].Copies)

	err := AdjustCopies(books, 1, -1)
	assert.True(t, errors.Is(err, ErrWouldGoNegative), "got %v", err)
	assert.Equal(t, 0, books[0].Copies)

	err = AdjustCopies(books, 2, 1)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestSearchBooks(t *testing.T) {
	got := SearchBooks(defaultBooks, "  c++ ")
	ids := make([]int, len(got))
	for i, b := range got {
		ids[i] = b.ID
	}
	assert.Equal(t, []int{1, 5, 12}, ids)
	assert.Empty(t, SearchBooks(defaultBooks, "cobol"))
}
