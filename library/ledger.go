package library

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	ledgerHeader    = `"ID", "Name", "Role", "Books Borrowed", "Time Borrowed", "Due Date", "Late Fees"`
	ledgerMinFields = 7

	// NoLoans and NoDate are the sentinels written for an empty record.
	NoLoans = "None"
	NoDate  = "N/A"

	storedFee  = "$0"
	dateLayout = "2006-01-02"
)

var loanEntry = regexp.MustCompile(`^(.+?) \((\d+)\)(?:, |$)`)

// Ledger is the borrower table. Each row keeps the outstanding loans of one
// identity as a single free-text field.
type Ledger struct {
	path string
	log  *slog.Logger
}

// NewLedger returns a store backed by the file at path.
func NewLedger(path string, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{path: path, log: log.With("file", path)}
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// LoadAll skips the first line unconditionally and decodes the rest. Lines
// with fewer than seven fields are logged and skipped.
func (l *Ledger) LoadAll() ([]Borrower, error) {
	lines, err := readLines(l.path, l.log)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return []Borrower{}, nil
	}

	out := make([]Borrower, 0, len(lines)-1)
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b, err := l.parseBorrower(DecodeRecord(line))
		if err != nil {
			l.log.Warn("skipping ledger line", "line", i+2, "reason", err)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (l *Ledger) parseBorrower(fields []string) (Borrower, error) {
	if len(fields) < ledgerMinFields {
		return Borrower{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformed, len(fields), ledgerMinFields)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Borrower{}, fmt.Errorf("%w: bad id %q", ErrMalformed, fields[0])
	}
	loans, leftovers := ParseLoans(fields[3])
	for _, frag := range leftovers {
		l.log.Warn("borrowed entry without book id", "user_id", id, "entry", frag)
	}
	return Borrower{
		ID:         id,
		Name:       fields[1],
		Role:       ParseRole(fields[2]),
		Loans:      loans,
		BorrowedOn: orNoDate(fields[4]),
		DueOn:      orNoDate(fields[5]),
	}, nil
}

// PersistAll rewrites the whole file with the seven-column header.
func (l *Ledger) PersistAll(records []Borrower) error {
	lines := make([]string, len(records))
	for i, b := range records {
		lines[i] = EncodeRecord(
			Text(strconv.Itoa(b.ID)),
			Text(b.Name),
			Text(b.Role.ledgerRole().String()),
			Text(FormatLoans(b.Loans)),
			Text(orNoDate(b.BorrowedOn)),
			Text(orNoDate(b.DueOn)),
			Text(storedFee),
		)
	}
	if err := replaceFile(l.path, ledgerHeader, lines); err != nil {
		return err
	}
	l.log.Debug("ledger persisted", "records", len(records))
	return nil
}

// ParseLoans splits a "Books Borrowed" field into loans. Fragments that carry
// no "(id)" tag are kept as title-only loans and also returned as leftovers.
func ParseLoans(field string) ([]Loan, []string) {
	s := strings.Trim(field, ", \t")
	if s == "" || s == NoLoans {
		return nil, nil
	}

	var (
		loans     []Loan
		leftovers []string
	)
	for s != "" {
		if m := loanEntry.FindStringSubmatch(s); m != nil {
			id, _ := strconv.Atoi(m[2])
			loans = append(loans, Loan{Title: m[1], BookID: id})
			s = s[len(m[0]):]
			continue
		}
		frag, rest, _ := strings.Cut(s, ", ")
		frag = strings.TrimSpace(frag)
		if frag != "" {
			loans = append(loans, Loan{Title: frag})
			leftovers = append(leftovers, frag)
		}
		s = rest
	}
	return loans, leftovers
}

// FormatLoans is the inverse of ParseLoans.
func FormatLoans(loans []Loan) string {
	if len(loans) == 0 {
		return NoLoans
	}
	parts := make([]string, len(loans))
	for i, l := range loans {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}

// FindBorrower returns the index of the record with id.
func FindBorrower(records []Borrower, id int) (int, bool) {
	for i := range records {
		if records[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// EnsureBorrower returns the index of the session's record, appending an
// empty one when the identity has none yet.
func EnsureBorrower(records []Borrower, s Session) ([]Borrower, int) {
	if i, ok := FindBorrower(records, s.UserID); ok {
		return records, i
	}
	records = append(records, Borrower{
		ID:         s.UserID,
		Name:       CleanField(s.Name),
		Role:       s.Role.ledgerRole(),
		BorrowedOn: NoDate,
		DueOn:      NoDate,
	})
	return records, len(records) - 1
}

// AppendBorrow adds (title, bookID) to b and stamps the record with today's
// date and the due date for role, the borrower's session role. The role
// stored on the row is left alone; it only prices late fees.
//
// The record has a single date pair, so a new loan moves the dates of every
// book already on it.
func AppendBorrow(b *Borrower, title string, bookID int, role Role, now time.Time) error {
	if b.HasLoan(bookID) {
		return fmt.Errorf("book %d: %w", bookID, ErrAlreadyBorrowed)
	}
	b.Loans = append(b.Loans, Loan{Title: title, BookID: bookID})
	b.BorrowedOn = now.Format(dateLayout)
	b.DueOn = DueDate(now, role).Format(dateLayout)
	return nil
}

// RemoveBorrow drops the loan matching both title and bookID. Removing the
// last loan resets the record to its sentinels.
func RemoveBorrow(b *Borrower, title string, bookID int) error {
	for i, l := range b.Loans {
		if l.BookID == bookID && l.Title == title {
			b.Loans = append(b.Loans[:i:i], b.Loans[i+1:]...)
			if len(b.Loans) == 0 {
				b.Loans = nil
				b.BorrowedOn = NoDate
				b.DueOn = NoDate
			}
			return nil
		}
	}
	return fmt.Errorf("%q (%d): %w", title, bookID, ErrNotBorrowed)
}

func orNoDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoDate
	}
	return s
}
