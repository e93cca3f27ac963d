package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"library-ledger/config"
	"library-ledger/library"
)

// importedBook is one element of the input array. ids are always assigned
// by the catalog.
type importedBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Copies int    `json:"copies"`
}

func main() {
	src := "books.json"
	if len(os.Args) > 1 {
		src = os.Args[1]
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	raw, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", src, err)
		os.Exit(1)
	}
	var in []importedBook
	if err := jsoniter.ConfigFastest.Unmarshal(raw, &in); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", src, err)
		os.Exit(1)
	}

	manager, err := library.NewLibraryManager(library.Options{
		CatalogPath:  cfg.CatalogPath(),
		LedgerPath:   cfg.LedgerPath(),
		DatabasePath: cfg.DatabasePath(),
		Logger:       log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	// Appending needs an existing catalog; a first run gets the defaults.
	if _, err := manager.Bootstrap(false); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing library data: %v\n", err)
		os.Exit(1)
	}

	books := make([]library.Book, len(in))
	for i, b := range in {
		books[i] = library.Book{Title: b.Title, Author: b.Author, Year: b.Year, Copies: b.Copies}
	}

	fmt.Printf("Importing %d book(s) from %s into %s...\n", len(books), src, cfg.CatalogPath())
	added, err := manager.ImportBooks(books)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed, catalog unchanged: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", len(added))

	if len(added) > 0 {
		fmt.Println("\nImported books:")
		fmt.Printf("%-5s %-50s %-30s %-6s %s\n", "ID", "Title", "Author", "Year", "Copies")
		fmt.Println(strings.Repeat("-", 100))
		for _, book := range added {
			fmt.Printf("%-5d %-50s %-30s %-6d %d\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30), book.Year, book.Copies)
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
