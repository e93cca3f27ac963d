package library

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Receipt describes a committed borrow or return.
type Receipt struct {
	Book     Book
	Borrower Borrower
}

// Lending runs borrow and return as one logical change across the catalog
// and the ledger. Both files are loaded, both mutations are applied in
// memory, and only then is anything written.
type Lending struct {
	catalog *Catalog
	ledger  *Ledger
	now     func() time.Time
	log     *slog.Logger
}

// LendingOption configures a Lending.
type LendingOption func(*Lending)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LendingOption {
	return func(l *Lending) { l.now = now }
}

// NewLending wires the engine to its two stores.
func NewLending(catalog *Catalog, ledger *Ledger, log *slog.Logger, opts ...LendingOption) *Lending {
	if log == nil {
		log = slog.Default()
	}
	l := &Lending{catalog: catalog, ledger: ledger, now: time.Now, log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Borrow lends one copy of bookID to the session's identity.
func (l *Lending) Borrow(s Session, bookID int) (*Receipt, error) {
	books, err := l.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	bi, ok := FindBook(books, bookID)
	if !ok {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	if books[bi].Copies <= 0 {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrNoCopies)
	}

	records, err := l.ledger.LoadAll()
	if err != nil {
		return nil, err
	}

	origBooks := slices.Clone(books)

	records, ri := EnsureBorrower(records, s)
	if err := AppendBorrow(&records[ri], books[bi].Title, bookID, s.Role, l.now()); err != nil {
		return nil, err
	}
	if err := AdjustCopies(books, bookID, -1); err != nil {
		return nil, err
	}

	if err := l.commit(
		func() error { return l.catalog.PersistAll(books) },
		func() error { return l.ledger.PersistAll(records) },
		func() error { return l.catalog.PersistAll(origBooks) },
	); err != nil {
		return nil, err
	}

	l.log.Info("book borrowed", "user_id", s.UserID, "book_id", bookID, "due", records[ri].DueOn)
	return &Receipt{Book: books[bi], Borrower: records[ri]}, nil
}

// Return takes bookID back from the session's identity.
func (l *Lending) Return(s Session, bookID int) (*Receipt, error) {
	books, err := l.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	bi, ok := FindBook(books, bookID)
	if !ok {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}

	records, err := l.ledger.LoadAll()
	if err != nil {
		return nil, err
	}
	ri, ok := FindBorrower(records, s.UserID)
	if !ok {
		return nil, fmt.Errorf("user %d has no loans: %w", s.UserID, ErrNotBorrowed)
	}

	origRecords := cloneBorrowers(records)

	if err := RemoveBorrow(&records[ri], books[bi].Title, bookID); err != nil {
		return nil, err
	}
	if err := AdjustCopies(books, bookID, +1); err != nil {
		return nil, err
	}

	if err := l.commit(
		func() error { return l.ledger.PersistAll(records) },
		func() error { return l.catalog.PersistAll(books) },
		func() error { return l.ledger.PersistAll(origRecords) },
	); err != nil {
		return nil, err
	}

	l.log.Info("book returned", "user_id", s.UserID, "book_id", bookID)
	return &Receipt{Book: books[bi], Borrower: records[ri]}, nil
}

// commit runs the two writes in order. When the second write fails, undo
// rewrites the first file from its pre-operation snapshot; if that fails too
// the files disagree and the error says so.
func (l *Lending) commit(first, second, undo func() error) error {
	if err := first(); err != nil {
		return err
	}
	if err := second(); err != nil {
		if uerr := undo(); uerr != nil {
			l.log.Error("catalog and ledger out of step", "write_err", err, "undo_err", uerr)
			return errors.Join(err, fmt.Errorf("undo first write: %w", uerr))
		}
		l.log.Warn("second write failed, first write undone", "err", err)
		return err
	}
	return nil
}

func cloneBorrowers(in []Borrower) []Borrower {
	out := make([]Borrower, len(in))
	for i, b := range in {
		b.Loans = slices.Clone(b.Loans)
		out[i] = b
	}
	return out
}
