package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"library-ledger/library"
)

// maxIDTries bounds how often a book id prompt is repeated on bad input.
const maxIDTries = 3

// shell is the interactive front end. The logged-in session lives on the
// stack of sessionLoop and is handed to every library call.
type shell struct {
	mgr *library.LibraryManager
	sc  *bufio.Scanner
	out io.Writer

	// readPassword is swapped out in tests.
	readPassword func(prompt string) (string, error)
}

func (a *app) runShell() error {
	if _, err := a.mgr.Bootstrap(false); err != nil {
		return a.report(err)
	}
	newShell(a.mgr, a.in, a.out).run()
	return nil
}

func newShell(mgr *library.LibraryManager, in io.Reader, out io.Writer) *shell {
	sh := &shell{mgr: mgr, sc: bufio.NewScanner(in), out: out}
	sh.readPassword = sh.readLinePassword
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		sh.readPassword = func(prompt string) (string, error) {
			fmt.Fprint(sh.out, prompt)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(sh.out)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}
	return sh
}

// readLinePassword is used when input is not a terminal, e.g. piped.
func (sh *shell) readLinePassword(prompt string) (string, error) {
	fmt.Fprint(sh.out, prompt)
	if !sh.sc.Scan() {
		if err := sh.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(sh.sc.Text()), nil
}

func (sh *shell) printf(format string, args ...any) { fmt.Fprintf(sh.out, format, args...) }
func (sh *shell) println(args ...any)               { fmt.Fprintln(sh.out, args...) }

// ask prompts and reads one trimmed line. ok is false at end of input.
func (sh *shell) ask(prompt string) (string, bool) {
	sh.printf("%s", prompt)
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.sc.Text()), true
}

// askID keeps prompting until a positive integer is entered or the tries run out.
func (sh *shell) askID(prompt string) (int, bool) {
	for try := 1; try <= maxIDTries; try++ {
		s, ok := sh.ask(prompt)
		if !ok {
			return 0, false
		}
		id, err := strconv.Atoi(s)
		if err == nil && id > 0 {
			return id, true
		}
		sh.printf("Invalid book ID: %s\n", s)
	}
	sh.println("Too many invalid attempts.")
	return 0, false
}

func (sh *shell) run() {
	sh.println("Welcome to the Library Lending System!")
	sh.printMainHelp()

	for {
		cmd, ok := sh.ask("\n> ")
		if !ok {
			return
		}
		switch cmd {
		case "":
		case "login":
			if s, ok := sh.handleLogin(); ok && !sh.sessionLoop(s) {
				return
			}
		case "signup":
			if s, ok := sh.handleSignup(); ok && !sh.sessionLoop(s) {
				return
			}
		case "help":
			sh.printMainHelp()
		case "exit":
			sh.println("Goodbye!")
			return
		default:
			sh.println("Unknown command. Type 'help' for the available commands.")
		}
	}
}

func (sh *shell) printMainHelp() {
	sh.println("Available commands: login, signup, help, exit")
}

func (sh *shell) printSessionHelp(s library.Session) {
	sh.println("Available commands:")
	sh.println("  Books: list books, search book")
	sh.println("  Loans: borrow, return, my loans, history")
	if s.IsAdmin() {
		sh.println("  Admin: add book, edit book, remove book, late fees, all loans")
	}
	sh.println("  Session: account, help, logout, exit")
}

// sessionLoop serves one logged-in session. It returns false when the user
// asked to leave the program or input ended.
func (sh *shell) sessionLoop(s library.Session) bool {
	sh.printf("Logged in as %s (%s).\n", s.Name, s.Role)
	sh.printSessionHelp(s)

	for {
		cmd, ok := sh.ask(fmt.Sprintf("\n%s> ", s.Name))
		if !ok {
			return false
		}
		switch cmd {
		case "":
		case "list books":
			sh.handleListBooks()
		case "search book":
			sh.handleSearchBooks()
		case "borrow":
			sh.handleBorrow(s)
		case "return":
			sh.handleReturn(s)
		case "my loans":
			sh.handleMyLoans(s)
		case "history":
			sh.handleHistory(s)
		case "add book":
			sh.handleAddBook(s)
		case "edit book":
			sh.handleEditBook(s)
		case "remove book":
			sh.handleRemoveBook(s)
		case "late fees":
			sh.handleLateFees(s)
		case "all loans":
			sh.handleAllLoans(s)
		case "account":
			sh.handleAccount(s)
		case "help":
			sh.printSessionHelp(s)
		case "logout":
			sh.printf("Logged out %s.\n", s.Name)
			return true
		case "exit":
			sh.println("Goodbye!")
			return false
		default:
			sh.println("Unknown command. Type 'help' for the available commands.")
		}
	}
}

func (sh *shell) handleLogin() (library.Session, bool) {
	username, ok := sh.ask("Username: ")
	if !ok {
		return library.Session{}, false
	}
	password, err := sh.readPassword("Password: ")
	if err != nil {
		sh.printf("Error reading password: %v\n", err)
		return library.Session{}, false
	}
	s, err := sh.mgr.Login(username, password)
	if err != nil {
		sh.printf("Login failed: %v\n", err)
		return library.Session{}, false
	}
	return s, true
}

func (sh *shell) handleSignup() (library.Session, bool) {
	username, ok := sh.ask("Choose a username: ")
	if !ok {
		return library.Session{}, false
	}
	password, err := sh.readPassword("Choose a password: ")
	if err != nil {
		sh.printf("Error reading password: %v\n", err)
		return library.Session{}, false
	}
	if password == "" {
		sh.println("Error: Password cannot be empty")
		return library.Session{}, false
	}
	s, err := sh.mgr.Signup(username, password)
	if err != nil {
		sh.printf("Signup failed: %v\n", err)
		return library.Session{}, false
	}
	sh.printf("Account '%s' created with ID %d.\n", s.Name, s.UserID)
	return s, true
}

func (sh *shell) handleAccount(s library.Session) {
	a, err := sh.mgr.Account(s)
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	sh.printf("Username: %s\nUser ID:  %d\nRole:     %s\n", a.Username, a.ID, library.ParseRole(a.RoleText))
}

func (sh *shell) handleListBooks() {
	books, err := sh.mgr.GetAllBooks()
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	printBooks(sh.out, books)
}

func (sh *shell) handleSearchBooks() {
	query, ok := sh.ask("Title contains: ")
	if !ok {
		return
	}
	books, err := sh.mgr.SearchBooks(query)
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		sh.printf("No books found matching '%s'.\n", query)
		return
	}
	sh.printf("Found %d book(s) matching '%s':\n", len(books), query)
	printBooks(sh.out, books)
}

func (sh *shell) handleBorrow(s library.Session) {
	bookID, ok := sh.askID("Book ID to borrow: ")
	if !ok {
		return
	}
	r, err := sh.mgr.Borrow(s, bookID)
	switch {
	case errors.Is(err, library.ErrNotFound):
		sh.printf("Book ID %d not found.\n", bookID)
	case errors.Is(err, library.ErrNoCopies):
		sh.println("Sorry, no copies of that book are available.")
	case errors.Is(err, library.ErrAlreadyBorrowed):
		sh.println("You already have this book on loan.")
	case err != nil:
		sh.printf("Error borrowing book: %v\n", err)
	default:
		sh.printf("Borrowed '%s'. Due back by %s.\n", r.Book.Title, r.Borrower.DueOn)
	}
}

func (sh *shell) handleReturn(s library.Session) {
	bookID, ok := sh.askID("Book ID to return: ")
	if !ok {
		return
	}
	r, err := sh.mgr.Return(s, bookID)
	switch {
	case errors.Is(err, library.ErrNotFound):
		sh.printf("Book ID %d not found.\n", bookID)
	case errors.Is(err, library.ErrNotBorrowed):
		sh.println("You have not borrowed this book.")
	case err != nil:
		sh.printf("Error returning book: %v\n", err)
	default:
		sh.printf("Returned '%s'. %d copies now on the shelf.\n", r.Book.Title, r.Book.Copies)
	}
}

func (sh *shell) handleMyLoans(s library.Session) {
	v, err := sh.mgr.MyLoans(s)
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	if v == nil {
		sh.println("You have no books on loan.")
		return
	}
	printLoanView(sh.out, v)
}

func (sh *shell) handleHistory(s library.Session) {
	userID := int64(s.UserID)
	if s.IsAdmin() {
		// Admins may look at anyone; blank means everyone.
		in, ok := sh.ask("User ID (or press Enter for all users): ")
		if !ok {
			return
		}
		userID = 0
		if in != "" {
			id, err := strconv.ParseInt(in, 10, 64)
			if err != nil {
				sh.printf("Invalid user ID: %s\n", in)
				return
			}
			userID = id
		}
	}
	events, err := sh.mgr.History(userID)
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	printHistory(sh.out, events)
}

func (sh *shell) handleAddBook(s library.Session) {
	if !sh.requireAdmin(s) {
		return
	}
	title, ok := sh.ask("Title: ")
	if !ok {
		return
	}
	author, ok := sh.ask("Author: ")
	if !ok {
		return
	}
	year, ok := sh.askInt("Year: ")
	if !ok {
		return
	}
	copies, ok := sh.askInt("Copies: ")
	if !ok {
		return
	}
	b, err := sh.mgr.AddBook(s, title, author, year, copies)
	if err != nil {
		sh.printf("Error adding book: %v\n", err)
		return
	}
	sh.printf("Added book ID %d: '%s'.\n", b.ID, b.Title)
}

func (sh *shell) handleEditBook(s library.Session) {
	if !sh.requireAdmin(s) {
		return
	}
	id, ok := sh.askID("Book ID to edit: ")
	if !ok {
		return
	}
	cur, err := sh.mgr.GetBook(id)
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}

	sh.println("Press Enter to keep the current value.")
	var e library.BookEdit
	if e.Title, ok = sh.askOptionalText(fmt.Sprintf("Title [%s]: ", cur.Title)); !ok {
		return
	}
	if e.Author, ok = sh.askOptionalText(fmt.Sprintf("Author [%s]: ", cur.Author)); !ok {
		return
	}
	if e.Year, ok = sh.askOptionalInt(fmt.Sprintf("Year [%d]: ", cur.Year)); !ok {
		return
	}
	if e.Copies, ok = sh.askOptionalInt(fmt.Sprintf("Copies [%d]: ", cur.Copies)); !ok {
		return
	}

	b, err := sh.mgr.EditBook(s, id, e)
	if err != nil {
		sh.printf("Error editing book: %v\n", err)
		return
	}
	sh.printf("Updated book ID %d: '%s' by %s (%d), %d copies.\n", b.ID, b.Title, b.Author, b.Year, b.Copies)
}

func (sh *shell) handleRemoveBook(s library.Session) {
	if !sh.requireAdmin(s) {
		return
	}
	id, ok := sh.askID("Book ID to remove: ")
	if !ok {
		return
	}
	b, err := sh.mgr.RemoveBook(s, id)
	if err != nil {
		sh.printf("Error removing book: %v\n", err)
		return
	}
	sh.printf("Removed book ID %d: '%s'.\n", b.ID, b.Title)
}

func (sh *shell) handleLateFees(s library.Session) {
	views, err := sh.mgr.LateFees(s)
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	if len(views) == 0 {
		sh.println("No late fees outstanding.")
		return
	}
	printLoans(sh.out, views)
}

func (sh *shell) handleAllLoans(s library.Session) {
	if !sh.requireAdmin(s) {
		return
	}
	views, err := sh.mgr.AllLoans()
	if err != nil {
		sh.printf("Error: %v\n", err)
		return
	}
	printLoans(sh.out, views)
}

func (sh *shell) requireAdmin(s library.Session) bool {
	if !s.IsAdmin() {
		sh.println("Only administrators can do that.")
		return false
	}
	return true
}

func (sh *shell) askInt(prompt string) (int, bool) {
	for {
		s, ok := sh.ask(prompt)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
		sh.printf("Not a number: %s\n", s)
	}
}

func (sh *shell) askOptionalText(prompt string) (*string, bool) {
	s, ok := sh.ask(prompt)
	if !ok || s == "" {
		return nil, ok
	}
	return &s, true
}

// askOptionalInt returns a nil pointer for a blank answer.
func (sh *shell) askOptionalInt(prompt string) (*int, bool) {
	for {
		s, ok := sh.ask(prompt)
		if !ok {
			return nil, false
		}
		if s == "" {
			return nil, true
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return &n, true
		}
		sh.printf("Not a number: %s\n", s)
	}
}
