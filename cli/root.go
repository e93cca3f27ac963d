// Package cli is the command-line front end: a cobra command tree for
// one-shot reports and an interactive shell for logged-in work.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"library-ledger/config"
	"library-ledger/library"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	cfgErr error
	mgr    *library.LibraryManager
	log    *slog.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// Execute runs the root command against the process's stdio.
func Execute() {
	if err := NewRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Configuration is resolved from .env and
// the environment first so flags can override it.
func NewRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}
	a.cfg, a.cfgErr = config.Load(".env")
	if a.cfg == nil {
		a.cfg = config.Default()
	}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Catalog and lending ledger for a small library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&a.cfg.DataDir, "data-dir", a.cfg.DataDir, "directory holding the data files")
	f.StringVar(&a.cfg.CatalogFile, "catalog", a.cfg.CatalogFile, "catalog file")
	f.StringVar(&a.cfg.LedgerFile, "ledger", a.cfg.LedgerFile, "borrower ledger file")
	f.StringVar(&a.cfg.DatabaseFile, "db", a.cfg.DatabaseFile, "SQLite file for accounts and the circulation journal")
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newShellCmd(a),
		newInitCmd(a),
		newBooksCmd(a),
		newLoansCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) open() error {
	if a.cfgErr != nil {
		return a.report(a.cfgErr)
	}
	if err := a.cfg.Validate(); err != nil {
		return a.report(err)
	}
	level, _ := a.cfg.Level()
	a.log = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	a.log.Debug("configuration loaded", "config", a.cfg.String())

	mgr, err := library.NewLibraryManager(library.Options{
		CatalogPath:  a.cfg.CatalogPath(),
		LedgerPath:   a.cfg.LedgerPath(),
		DatabasePath: a.cfg.DatabasePath(),
		Logger:       a.log,
	})
	if err != nil {
		return a.report(fmt.Errorf("opening database: %w", err))
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

// report prints err for the user and hands it back so cobra exits non-zero.
func (a *app) report(err error) error {
	fmt.Fprintf(a.errOut, "Error: %v\n", err)
	return err
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session: log in, borrow, return, administer the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell()
		},
	}
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default catalog, ledger and accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wrote, err := a.mgr.Bootstrap(force)
			if err != nil {
				return a.report(err)
			}
			if wrote {
				fmt.Fprintln(a.out, "Default library data created.")
			} else {
				fmt.Fprintln(a.out, "Library data already present; use --force to overwrite.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data with the defaults")
	return cmd
}

func newBooksCmd(a *app) *cobra.Command {
	var (
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog, optionally filtered by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				books []library.Book
				err   error
			)
			if query != "" {
				books, err = a.mgr.SearchBooks(query)
			} else {
				books, err = a.mgr.GetAllBooks()
			}
			if err != nil {
				return a.report(err)
			}
			if asJSON {
				return writeJSON(a.out, books)
			}
			printBooks(a.out, books)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "case-insensitive title substring")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newLoansCmd(a *app) *cobra.Command {
	var (
		asJSON  bool
		overdue bool
	)
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Show every borrower record with its current late fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := a.mgr.AllLoans()
			if err != nil {
				return a.report(err)
			}
			if overdue {
				views = owing(views)
			}
			if asJSON {
				return writeJSON(a.out, views)
			}
			printLoans(a.out, views)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only borrowers who owe a fee")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		userID int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the circulation journal, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.mgr.History(userID)
			if err != nil {
				return a.report(err)
			}
			if asJSON {
				return writeJSON(a.out, events)
			}
			printHistory(a.out, events)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "only this user id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func owing(views []library.LoanView) []library.LoanView {
	out := []library.LoanView{}
	for _, v := range views {
		if v.Fee > 0 {
			out = append(out, v)
		}
	}
	return out
}
