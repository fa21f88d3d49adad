package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/gallery"
	"github.com/antibyte/calcvault/pkg/passcode"
	"github.com/antibyte/calcvault/pkg/store"
	"github.com/antibyte/calcvault/pkg/ui"

	"github.com/briandowns/spinner"
)

// services bundles everything the commands build on the database.
type services struct {
	db        *store.DB
	auth      *auth.Service
	passcodes *passcode.Manager
	gallery   *gallery.Service
}

func databasePath() string {
	if dbPath != "" {
		return dbPath
	}
	return configuration.GetString("Database", "path", "calcvault.db")
}

// openServices opens the database and wires the services on top of it.
func openServices() (*services, error) {
	path := databasePath()
	Console.Debugf("Opening database %s", path)
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return &services{
		db:        db,
		auth:      auth.NewService(db),
		passcodes: passcode.NewManager(db),
		gallery:   gallery.NewService(db, db),
	}, nil
}

func (s *services) Close() {
	if err := s.db.Close(); err != nil {
		Console.Warnf("Failed to close database: %v", err)
	}
}

// startSpinner creates and starts a spinner with the given message when not
// in verbose or debug mode. The returned cleanup prints FinalMSG.
func startSpinner(message string, out io.Writer) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Console.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded while the spinner draws.
		log.SetOutput(io.Discard)
	} else {
		Console.Infof("%s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			s.FinalMSG = ""
		}
		if quiet {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}
	return s, cleanup
}

func success(msg string) string {
	return ui.Success.Sprint("✓") + " " + msg
}

func failure(msg string) string {
	return ui.Error.Sprint("✗") + " " + msg
}
