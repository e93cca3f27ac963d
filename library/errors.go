package library

import "errors"

// Outcome kinds returned by the ledger layer. Match them with errors.Is.
var (
	// ErrMalformed marks a line that decodes to fewer fields than its table
	// needs, or whose numeric fields do not parse. Such lines are skipped.
	ErrMalformed = errors.New("malformed record")

	ErrNotFound        = errors.New("not found")
	ErrNoCopies        = errors.New("no copies available")
	ErrWouldGoNegative = errors.New("copies would go negative")
	ErrAlreadyBorrowed = errors.New("book already borrowed")
	ErrNotBorrowed     = errors.New("book not borrowed")

	// ErrIO wraps file open/read/write failures.
	ErrIO = errors.New("i/o error")

	// ErrDateParse is never fatal; the fee degrades to zero.
	ErrDateParse = errors.New("invalid due date")

	// account errors
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidInput       = errors.New("invalid input")
)
