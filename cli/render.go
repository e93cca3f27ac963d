package cli

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"library-ledger/library"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w io.Writer, v any) error {
	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-5s %-40s %-25s %-6s %s\n", "ID", "Title", "Author", "Year", "Copies")
	fmt.Fprintln(w, strings.Repeat("-", 86))
	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-40s %-25s %-6d %d\n",
			b.ID,
			truncateString(b.Title, 40),
			truncateString(b.Author, 25),
			b.Year,
			b.Copies)
	}
}

func printLoans(w io.Writer, views []library.LoanView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No borrower records.")
		return
	}
	fmt.Fprintf(w, "%-5s %-22s %-8s %-11s %-11s %-9s %s\n", "ID", "Name", "Role", "Borrowed", "Due", "Late Fee", "Books")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, v := range views {
		b := v.Borrower
		fmt.Fprintf(w, "%-5d %-22s %-8s %-11s %-11s %-9s %s\n",
			b.ID,
			truncateString(b.Name, 22),
			v.Role,
			b.BorrowedOn,
			b.DueOn,
			v.Fee,
			library.FormatLoans(b.Loans))
	}
}

func printLoanView(w io.Writer, v *library.LoanView) {
	b := v.Borrower
	if len(b.Loans) == 0 {
		fmt.Fprintln(w, "You have no books on loan.")
		return
	}
	fmt.Fprintf(w, "Books on loan for %s (%s):\n", b.Name, v.Role)
	for _, l := range b.Loans {
		fmt.Fprintf(w, "  - %s\n", l)
	}
	fmt.Fprintf(w, "Borrowed: %s  Due: %s  Late fee: %s\n", b.BorrowedOn, b.DueOn, v.Fee)
}

func printHistory(w io.Writer, events []library.LoanEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No circulation history.")
		return
	}
	fmt.Fprintf(w, "%-30s %-8s %-6s %-8s %-11s %s\n", "When", "User", "Book", "Action", "Due", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range events {
		fmt.Fprintf(w, "%-30s %-8d %-6d %-8s %-11s %s\n",
			e.OccurredAt, e.UserID, e.BookID, e.Action, e.DueDate, truncateString(e.Title, 40))
	}
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
