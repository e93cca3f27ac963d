package library

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles. Stored text is converted to a Role
// exactly once, when a record is loaded.
type Role int

const (
	RoleStudent Role = iota
	RoleFaculty
	RoleAdmin
)

// ParseRole converts stored role text ("ADMIN", "Faculty", "student", ...).
// Anything that is not Admin or Faculty is a Student.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return RoleAdmin
	case "FACULTY":
		return RoleFaculty
	default:
		return RoleStudent
	}
}

// String returns the title-case form used in the ledger file.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleFaculty:
		return "Faculty"
	default:
		return "Student"
	}
}

// accountText is the upper-case form kept in the accounts table.
func (r Role) accountText() string { return strings.ToUpper(r.String()) }

// ledgerRole maps a session role onto the roles a borrower record can carry.
// Admins borrow on student terms.
func (r Role) ledgerRole() Role {
	if r == RoleFaculty {
		return RoleFaculty
	}
	return RoleStudent
}

// Book is one catalog entry. Copies counts the units currently on the shelf.
type Book struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Copies int    `json:"copies"`
}

// Loan is one outstanding (title, book id) pair on a borrower record.
// BookID is 0 for legacy fragments that carried no "(id)" tag.
type Loan struct {
	Title  string `json:"title"`
	BookID int    `json:"book_id"`
}

func (l Loan) String() string {
	if l.BookID == 0 {
		return l.Title
	}
	return fmt.Sprintf("%s (%d)", l.Title, l.BookID)
}

// Borrower is one ledger row. BorrowedOn and DueOn hold YYYY-MM-DD or the
// "N/A" sentinel; one pair covers every loan on the record.
type Borrower struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"-"`
	Loans      []Loan `json:"loans"`
	BorrowedOn string `json:"borrowed_on"`
	DueOn      string `json:"due_on"`
}

// HasLoan reports whether bookID is among the outstanding loans.
func (b *Borrower) HasLoan(bookID int) bool {
	for _, l := range b.Loans {
		if l.BookID == bookID {
			return true
		}
	}
	return false
}

// Session identifies the caller of every lending operation.
type Session struct {
	UserID int
	Name   string
	Role   Role
}

// IsAdmin reports whether the session may administer the catalog.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// LoanView is a borrower record together with its live late fee.
type LoanView struct {
	Borrower Borrower `json:"borrower"`
	Role     string   `json:"role"`
	Fee      Amount   `json:"late_fee"`
}

// LoanEvent is one row of the circulation journal.
type LoanEvent struct {
	ID         string `db:"id" json:"id"`
	UserID     int64  `db:"user_id" json:"user_id"`
	BookID     int64  `db:"book_id" json:"book_id"`
	Title      string `db:"title" json:"title"`
	Action     string `db:"action" json:"action"`
	DueDate    string `db:"due_date" json:"due_date"`
	OccurredAt string `db:"occurred_at" json:"occurred_at"`
}

// Account is a login identity. The ledger only consumes ID and Role.
type Account struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	RoleText     string `db:"role"`
	PasswordHash string `db:"password_hash"`
}
