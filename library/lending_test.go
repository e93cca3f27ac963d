package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lendingFixture struct {
	lending *Lending
	catalog *Catalog
	ledger  *Ledger
}

func newLendingFixture(t *testing.T, now time.Time) *lendingFixture {
	t.Helper()
	dir := t.TempDir()
	catalog := NewCatalog(filepath.Join(dir, "books.txt"), nil)
	ledger := NewLedger(filepath.Join(dir, "People.txt"), nil)

	require.NoError(t, catalog.PersistAll([]Book{
		{ID: 1, Title: "Clean Code", Author: "Robert C. Martin", Year: 2008, Copies: 2},
		{ID: 2, Title: "Deep Learning", Author: "Ian Goodfellow", Year: 2016, Copies: 1},
		{ID: 3, Title: "Design Patterns", Author: "Erich Gamma", Year: 1994, Copies: 0},
	}))
	require.NoError(t, ledger.PersistAll(cloneBorrowers(defaultBorrowers)))

	return &lendingFixture{
		lending: NewLending(catalog, ledger, nil, WithClock(func() time.Time { return now })),
		catalog: catalog,
		ledger:  ledger,
	}
}

func (f *lendingFixture) snapshot(t *testing.T) (string, string) {
	t.Helper()
	c, err := os.ReadFile(f.catalog.Path())
	require.NoError(t, err)
	l, err := os.ReadFile(f.ledger.Path())
	require.NoError(t, err)
	return string(c), string(l)
}

func (f *lendingFixture) copies(t *testing.T, id int) int {
	t.Helper()
	books, err := f.catalog.LoadAll()
	require.NoError(t, err)
	i, ok := FindBook(books, id)
	require.True(t, ok)
	return books[i].Copies
}

func (f *lendingFixture) borrower(t *testing.T, id int) Borrower {
	t.Helper()
	records, err := f.ledger.LoadAll()
	require.NoError(t, err)
	i, ok := FindBorrower(records, id)
	require.True(t, ok, "no ledger record for %d", id)
	return records[i]
}

var student = Session{UserID: 7, Name: "sam", Role: RoleStudent}

func TestBorrowAndReturn(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	f := newLendingFixture(t, now)
	catalogBefore, _ := f.snapshot(t)

	r, err := f.lending.Borrow(student, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Book.Copies)
	assert.Equal(t, 1, f.copies(t, 1))

	b := f.borrower(t, 7)
	assert.Equal(t, "sam", b.Name)
	assert.Equal(t, RoleStudent, b.Role)
	assert.Equal(t, []Loan{{"Clean Code", 1}}, b.Loans)
	assert.Equal(t, "2024-03-01", b.BorrowedOn)
	assert.Equal(t, "2024-03-31", b.DueOn)

	_, err = f.lending.Borrow(student, 2)
	require.NoError(t, err)
	assert.Equal(t, "Clean Code (1), Deep Learning (2)", FormatLoans(f.borrower(t, 7).Loans))

	_, err = f.lending.Return(student, 1)
	require.NoError(t, err)
	assert.Equal(t, "Deep Learning (2)", FormatLoans(f.borrower(t, 7).Loans))

	r, err = f.lending.Return(student, 2)
	require.NoError(t, err)
	assert.Nil(t, r.Borrower.Loans)

	b = f.borrower(t, 7)
	assert.Nil(t, b.Loans)
	assert.Equal(t, NoDate, b.BorrowedOn)
	assert.Equal(t, NoDate, b.DueOn)

	catalogAfter, _ := f.snapshot(t)
	assert.Equal(t, catalogBefore, catalogAfter)
}

func TestBorrowFacultyDueDate(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	faculty := Session{UserID: 1, Name: "Dr. Emily Carter", Role: RoleFaculty}

	_, err := f.lending.Borrow(faculty, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30", f.borrower(t, 1).DueOn)
	assert.Equal(t, 0, f.copies(t, 2))
}

func TestBorrowDueDateFollowsSessionRole(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	// Account 1 is the admin; ledger row 1 is a Faculty record.
	admin := Session{UserID: 1, Name: "admin", Role: RoleAdmin}

	r, err := f.lending.Borrow(admin, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-31", r.Borrower.DueOn)

	b := f.borrower(t, 1)
	assert.Equal(t, "2024-03-31", b.DueOn)
	assert.Equal(t, RoleFaculty, b.Role)
	assert.Equal(t, "Dr. Emily Carter", b.Name)
}

func TestBorrowAndReturnKeepsExistingLoans(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	records := cloneBorrowers(defaultBorrowers)
	records = append(records, Borrower{
		ID:         7,
		Name:       "sam",
		Role:       RoleStudent,
		Loans:      []Loan{{"Clean Code", 1}},
		BorrowedOn: "2024-02-01",
		DueOn:      "2024-03-02",
	})
	require.NoError(t, f.ledger.PersistAll(records))
	before := FormatLoans(f.borrower(t, 7).Loans)
	require.Equal(t, "Clean Code (1)", before)

	_, err := f.lending.Borrow(student, 2)
	require.NoError(t, err)
	assert.Equal(t, "Clean Code (1), Deep Learning (2)", FormatLoans(f.borrower(t, 7).Loans))
	assert.Equal(t, 0, f.copies(t, 2))

	_, err = f.lending.Return(student, 2)
	require.NoError(t, err)
	assert.Equal(t, before, FormatLoans(f.borrower(t, 7).Loans))
	assert.Equal(t, 1, f.copies(t, 2))

	_, ledger := f.snapshot(t)
	assert.Contains(t, ledger, `"7", "sam", "Student", "Clean Code (1)", "2024-03-01", "2024-03-31", "$0"`)
}

func TestBorrowFailuresLeaveFilesUntouched(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	_, err := f.lending.Borrow(student, 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		bookID int
		want   error
	}{
		{"already borrowed", 1, ErrAlreadyBorrowed},
		{"no copies", 3, ErrNoCopies},
		{"unknown book", 99, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, ledger := f.snapshot(t)

			_, err := f.lending.Borrow(student, tt.bookID)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			catalogAfter, ledgerAfter := f.snapshot(t)
			assert.Equal(t, catalog, catalogAfter)
			assert.Equal(t, ledger, ledgerAfter)
		})
	}
}

func TestReturnFailuresLeaveFilesUntouched(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	_, err := f.lending.Borrow(student, 1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		session Session
		bookID  int
		want    error
	}{
		{"not on record", student, 2, ErrNotBorrowed},
		{"no ledger record", Session{UserID: 42, Name: "nobody"}, 1, ErrNotBorrowed},
		{"unknown book", student, 99, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, ledger := f.snapshot(t)

			_, err := f.lending.Return(tt.session, tt.bookID)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			catalogAfter, ledgerAfter := f.snapshot(t)
			assert.Equal(t, catalog, catalogAfter)
			assert.Equal(t, ledger, ledgerAfter)
		})
	}
}

func TestReturnAfterTitleEditFails(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	_, err := f.lending.Borrow(student, 1)
	require.NoError(t, err)

	books, err := f.catalog.LoadAll()
	require.NoError(t, err)
	books[0].Title = "Clean Code 2nd Edition"
	require.NoError(t, f.catalog.PersistAll(books))

	_, err = f.lending.Return(student, 1)
	assert.True(t, errors.Is(err, ErrNotBorrowed), "got %v", err)
}

func TestBorrowMissingLedgerWritesNothing(t *testing.T) {
	f := newLendingFixture(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	require.NoError(t, os.Remove(f.ledger.Path()))
	catalog, err := os.ReadFile(f.catalog.Path())
	require.NoError(t, err)

	_, err = f.lending.Borrow(student, 1)
	assert.True(t, errors.Is(err, ErrIO), "got %v", err)

	after, err := os.ReadFile(f.catalog.Path())
	require.NoError(t, err)
	assert.Equal(t, string(catalog), string(after))
}

func TestCommitUndoesFirstWrite(t *testing.T) {
	l := NewLending(nil, nil, nil)
	errDisk := errors.New("disk full")

	var undone bool
	err := l.commit(
		func() error { return nil },
		func() error { return errDisk },
		func() error { undone = true; return nil },
	)
	assert.ErrorIs(t, err, errDisk)
	assert.True(t, undone)

	errUndo := errors.New("undo failed")
	err = l.commit(
		func() error { return nil },
		func() error { return errDisk },
		func() error { return errUndo },
	)
	assert.ErrorIs(t, err, errDisk)
	assert.ErrorIs(t, err, errUndo)

	undone = false
	err = l.commit(
		func() error { return errDisk },
		func() error { t.Fatal("second write after failed first"); return nil },
		func() error { undone = true; return nil },
	)
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, undone)
}
