package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// Database keeps login accounts and the circulation journal in SQLite. The
// catalog and ledger files stay the source of truth for lending state.
type Database struct {
	db *sqlx.DB

	addAccountStmt *sql.Stmt
	addEventStmt   *sql.Stmt

	hashCost int
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db, hashCost: bcrypt.DefaultCost}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addAccountStmt != nil {
		d.addAccountStmt.Close()
	}
	if d.addEventStmt != nil {
		d.addEventStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

// eventTimeLayout is fixed-width so occurred_at sorts as text.
const eventTimeLayout = "2006-01-02T15:04:05.000000000Z"

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            role TEXT NOT NULL,
            password_hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loan_events (
            id TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL,
            book_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            action TEXT NOT NULL CHECK (action IN ('borrow','return')),
            due_date TEXT NOT NULL,
            occurred_at TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loan_events_user ON loan_events(user_id, occurred_at);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addAccountStmt, err = d.db.Prepare(`INSERT INTO accounts(username,role,password_hash) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.addEventStmt, err = d.db.Prepare(`INSERT INTO loan_events(id,user_id,book_id,title,action,due_date,occurred_at) VALUES(?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// AddAccount stores a new identity with a bcrypt hash of password.
func (d *Database) AddAccount(username string, role Role, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	res, err := d.addAccountStmt.Exec(username, role.accountText(), string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%q: %w", username, ErrUsernameTaken)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// SeedAccount inserts an account with a fixed id unless the id or username
// is already present.
func (d *Database) SeedAccount(id int64, username string, role Role, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = d.db.Exec(`INSERT OR IGNORE INTO accounts(id,username,role,password_hash) VALUES(?,?,?,?)`,
		id, username, role.accountText(), string(hash))
	return err
}

// Authenticate returns the account when username and password match.
func (d *Database) Authenticate(username, password string) (*Account, error) {
	var a Account
	err := d.db.Get(&a, `SELECT id,username,role,password_hash FROM accounts WHERE username=?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &a, nil
}

// GetAccount fetches a single account.
func (d *Database) GetAccount(id int64) (*Account, error) {
	var a Account
	err := d.db.Get(&a, `SELECT id,username,role,password_hash FROM accounts WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAccounts returns the number of stored accounts.
func (d *Database) CountAccounts() (int, error) {
	var n int
	err := d.db.Get(&n, `SELECT COUNT(*) FROM accounts`)
	return n, err
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---------------------------------------------------------------------------
// Circulation journal
// ---------------------------------------------------------------------------

// RecordLoanEvent appends one borrow or return to the journal and returns the
// stored event.
func (d *Database) RecordLoanEvent(userID, bookID int, title, action, dueDate string, at time.Time) (*LoanEvent, error) {
	e := LoanEvent{
		ID:         uuid.NewString(),
		UserID:     int64(userID),
		BookID:     int64(bookID),
		Title:      title,
		Action:     action,
		DueDate:    dueDate,
		OccurredAt: at.UTC().Format(eventTimeLayout),
	}
	if _, err := d.addEventStmt.Exec(e.ID, e.UserID, e.BookID, e.Title, e.Action, e.DueDate, e.OccurredAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoanEvents lists journal entries newest first. userID 0 lists everyone.
func (d *Database) LoanEvents(userID int64) ([]LoanEvent, error) {
	events := []LoanEvent{}
	var err error
	if userID == 0 {
		err = d.db.Select(&events, `SELECT id,user_id,book_id,title,action,due_date,occurred_at
            FROM loan_events ORDER BY occurred_at DESC, rowid DESC`)
	} else {
		err = d.db.Select(&events, `SELECT id,user_id,book_id,title,action,due_date,occurred_at
            FROM loan_events WHERE user_id=? ORDER BY occurred_at DESC, rowid DESC`, userID)
	}
	if err != nil {
		return nil, err
	}
	return events, nil
}
