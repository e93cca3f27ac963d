package library

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LibraryManager is a thin façade over the stores, keeping CLI code simple.
type LibraryManager struct {
	db      *Database
	catalog *Catalog
	ledger  *Ledger
	lending *Lending

	now func() time.Time
	log *slog.Logger
}

// Options locates the three backing files.
type Options struct {
	CatalogPath  string
	LedgerPath   string
	DatabasePath string

	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewLibraryManager opens (or creates) the SQLite database and wires the
// catalog and ledger files. The files themselves are not touched until the
// first operation or Bootstrap.
func NewLibraryManager(opts Options) (*LibraryManager, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	db, err := NewDatabase(opts.DatabasePath)
	if err != nil {
		return nil, err
	}

	catalog := NewCatalog(opts.CatalogPath, log)
	ledger := NewLedger(opts.LedgerPath, log)
	return &LibraryManager{
		db:      db,
		catalog: catalog,
		ledger:  ledger,
		lending: NewLending(catalog, ledger, log, WithClock(now)),
		now:     now,
		log:     log,
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// ------------------ Bootstrap ------------------

// Bootstrap writes the default catalog, ledger and accounts for whichever of
// them is missing, or all of them when force is set. It reports whether
// anything was written.
func (lm *LibraryManager) Bootstrap(force bool) (bool, error) {
	accounts, err := lm.db.CountAccounts()
	if err != nil {
		return false, err
	}

	wrote := false
	if force || !fileExists(lm.catalog.Path()) {
		if err := lm.catalog.PersistAll(defaultBooks); err != nil {
			return wrote, err
		}
		wrote = true
	}
	if force || !fileExists(lm.ledger.Path()) {
		if err := lm.ledger.PersistAll(defaultBorrowers); err != nil {
			return wrote, err
		}
		wrote = true
	}
	if force || accounts == 0 {
		for _, a := range defaultAccounts {
			if err := lm.db.SeedAccount(a.id, a.username, a.role, a.password); err != nil {
				return wrote, fmt.Errorf("seed account %s: %w", a.username, err)
			}
		}
		wrote = true
	}
	if wrote {
		lm.log.Info("default data created", "catalog", lm.catalog.Path(), "ledger", lm.ledger.Path())
	}
	return wrote, nil
}

// ------------------ Accounts ------------------

// Signup creates a student account and an empty borrower record for it.
func (lm *LibraryManager) Signup(username, password string) (Session, error) {
	username = CleanField(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return Session{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	id, err := lm.db.AddAccount(username, RoleStudent, password)
	if err != nil {
		return Session{}, err
	}
	s := Session{UserID: int(id), Name: username, Role: RoleStudent}

	// The record would also be created on first borrow, so a failure here
	// does not undo the account.
	if err := lm.seedBorrower(s); err != nil {
		lm.log.Warn("could not pre-seed borrower record", "user_id", s.UserID, "err", err)
	}
	return s, nil
}

func (lm *LibraryManager) seedBorrower(s Session) error {
	records, err := lm.ledger.LoadAll()
	if err != nil {
		return err
	}
	if _, ok := FindBorrower(records, s.UserID); ok {
		return nil
	}
	records, _ = EnsureBorrower(records, s)
	return lm.ledger.PersistAll(records)
}

// Login verifies credentials and returns the session to pass to every
// subsequent call.
func (lm *LibraryManager) Login(username, password string) (Session, error) {
	a, err := lm.db.Authenticate(strings.TrimSpace(username), password)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: int(a.ID), Name: a.Username, Role: ParseRole(a.RoleText)}, nil
}

// Account returns the login identity behind s.
func (lm *LibraryManager) Account(s Session) (*Account, error) {
	return lm.db.GetAccount(int64(s.UserID))
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) GetAllBooks() ([]Book, error) { return lm.catalog.LoadAll() }

func (lm *LibraryManager) GetBook(id int) (*Book, error) {
	books, err := lm.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	i, ok := FindBook(books, id)
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return &books[i], nil
}

func (lm *LibraryManager) SearchBooks(q string) ([]Book, error) {
	books, err := lm.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	return SearchBooks(books, q), nil
}

// AddBook appends a book with the next free id. Admin only.
func (lm *LibraryManager) AddBook(s Session, title, author string, year, copies int) (*Book, error) {
	if !s.IsAdmin() {
		return nil, fmt.Errorf("add book: %w", ErrForbidden)
	}
	added, err := lm.ImportBooks([]Book{{Title: title, Author: author, Year: year, Copies: copies}})
	if err != nil {
		return nil, err
	}
	return &added[0], nil
}

// ImportBooks appends books in order, assigning ids from NextBookID, and
// persists the catalog once.
func (lm *LibraryManager) ImportBooks(in []Book) ([]Book, error) {
	books, err := lm.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	added := make([]Book, 0, len(in))
	for _, b := range in {
		b.Title = CleanField(b.Title)
		b.Author = CleanField(b.Author)
		if err := validateBook(b); err != nil {
			return nil, err
		}
		b.ID = NextBookID(books)
		books = append(books, b)
		added = append(added, b)
	}
	if err := lm.catalog.PersistAll(books); err != nil {
		return nil, err
	}
	return added, nil
}

// BookEdit names the fields to change; nil fields are left alone.
type BookEdit struct {
	Title  *string
	Author *string
	Year   *int
	Copies *int
}

// EditBook changes one book in place. Admin only.
func (lm *LibraryManager) EditBook(s Session, id int, e BookEdit) (*Book, error) {
	if !s.IsAdmin() {
		return nil, fmt.Errorf("edit book: %w", ErrForbidden)
	}
	books, err := lm.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	i, ok := FindBook(books, id)
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}

	b := books[i]
	if e.Title != nil {
		b.Title = CleanField(*e.Title)
	}
	if e.Author != nil {
		b.Author = CleanField(*e.Author)
	}
	if e.Year != nil {
		b.Year = *e.Year
	}
	if e.Copies != nil {
		b.Copies = *e.Copies
	}
	if err := validateBook(b); err != nil {
		return nil, err
	}
	books[i] = b

	if err := lm.catalog.PersistAll(books); err != nil {
		return nil, err
	}
	return &b, nil
}

// RemoveBook deletes a book from the catalog. Outstanding loans of it are
// left on the ledger and only logged. Admin only.
func (lm *LibraryManager) RemoveBook(s Session, id int) (*Book, error) {
	if !s.IsAdmin() {
		return nil, fmt.Errorf("remove book: %w", ErrForbidden)
	}
	books, err := lm.catalog.LoadAll()
	if err != nil {
		return nil, err
	}
	i, ok := FindBook(books, id)
	if !ok {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	removed := books[i]
	books = append(books[:i], books[i+1:]...)

	if records, err := lm.ledger.LoadAll(); err == nil {
		for _, r := range records {
			if r.HasLoan(id) {
				lm.log.Warn("removed book is still on loan", "book_id", id, "user_id", r.ID)
			}
		}
	}

	if err := lm.catalog.PersistAll(books); err != nil {
		return nil, err
	}
	return &removed, nil
}

func validateBook(b Book) error {
	switch {
	case b.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case b.Copies < 0:
		return fmt.Errorf("%w: copies must not be negative", ErrInvalidInput)
	}
	return nil
}

// ------------------ Circulation ------------------

// Borrow lends bookID to the session and journals the loan.
func (lm *LibraryManager) Borrow(s Session, bookID int) (*Receipt, error) {
	r, err := lm.lending.Borrow(s, bookID)
	if err != nil {
		return nil, err
	}
	lm.journal(s, r, "borrow")
	return r, nil
}

// Return takes bookID back from the session and journals the return.
func (lm *LibraryManager) Return(s Session, bookID int) (*Receipt, error) {
	r, err := lm.lending.Return(s, bookID)
	if err != nil {
		return nil, err
	}
	lm.journal(s, r, "return")
	return r, nil
}

// journal failures never change the outcome of a committed operation.
func (lm *LibraryManager) journal(s Session, r *Receipt, action string) {
	if _, err := lm.db.RecordLoanEvent(s.UserID, r.Book.ID, r.Book.Title, action, r.Borrower.DueOn, lm.now()); err != nil {
		lm.log.Warn("could not journal loan event", "action", action, "user_id", s.UserID, "book_id", r.Book.ID, "err", err)
	}
}

// MyLoans returns the session's borrower record with its live fee, or nil
// when the identity has never borrowed.
func (lm *LibraryManager) MyLoans(s Session) (*LoanView, error) {
	records, err := lm.ledger.LoadAll()
	if err != nil {
		return nil, err
	}
	i, ok := FindBorrower(records, s.UserID)
	if !ok {
		return nil, nil
	}
	v := lm.view(records[i])
	return &v, nil
}

// AllLoans returns every borrower record with its live fee.
func (lm *LibraryManager) AllLoans() ([]LoanView, error) {
	records, err := lm.ledger.LoadAll()
	if err != nil {
		return nil, err
	}
	views := make([]LoanView, len(records))
	for i, r := range records {
		views[i] = lm.view(r)
	}
	return views, nil
}

// LateFees lists borrowers who currently owe a fee. Admin only.
func (lm *LibraryManager) LateFees(s Session) ([]LoanView, error) {
	if !s.IsAdmin() {
		return nil, fmt.Errorf("late fees: %w", ErrForbidden)
	}
	all, err := lm.AllLoans()
	if err != nil {
		return nil, err
	}
	owing := []LoanView{}
	for _, v := range all {
		if v.Fee > 0 {
			owing = append(owing, v)
		}
	}
	return owing, nil
}

func (lm *LibraryManager) view(b Borrower) LoanView {
	fee, err := LateFee(b.DueOn, b.Role, lm.now())
	if err != nil {
		lm.log.Warn("late fee not computed", "user_id", b.ID, "due", b.DueOn, "err", err)
	}
	return LoanView{Borrower: b, Role: b.Role.String(), Fee: fee}
}

// History lists journal events, newest first. userID 0 lists everyone.
func (lm *LibraryManager) History(userID int64) ([]LoanEvent, error) {
	return lm.db.LoanEvents(userID)
}
