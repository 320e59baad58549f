// Package account persists the username/password records behind /login
// and /create as a flat semicolon-delimited key=value file.
package account

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Result is the three-way outcome of a credential lookup. Login and
// creation need to tell "no such account" apart from "account exists
// but the password does not match".
type Result int

const (
	// Absent means no record carries the requested username.
	Absent Result = iota
	// WrongPassword means the username exists with a different password.
	WrongPassword
	// OK means username and password both match a record.
	OK
)

// Record is one stored account. Passwords are compared as opaque
// strings; the on-disk format is plaintext, which is a known weakness
// of the protocol, not something this package tries to fix.
type Record struct {
	Username string
	Password string
}

// Store is an in-memory snapshot of the account file. The snapshot is
// loaded once at startup and written back with Flush; it is owned and
// mutated exclusively by the hub goroutine, so no locking is needed.
type Store struct {
	path    string
	records []Record
}

// NewStore creates a store backed by the file at path. No I/O happens
// until Load is called.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the backing file into memory. A missing or unreadable file
// is treated as an empty store, not an error; malformed lines are
// skipped.
func (s *Store) Load() {
	s.records = s.records[:0]

	f, err := os.Open(s.path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rec, ok := parseLine(scanner.Text()); ok {
			s.records = append(s.records, rec)
		}
	}
}

// Lookup resolves username and password against the snapshot. The first
// record with a matching username wins, mirroring the append-only file
// where duplicates can accumulate if callers skip the existence check.
func (s *Store) Lookup(username, password string) Result {
	for _, rec := range s.records {
		if rec.Username == username {
			if rec.Password == password {
				return OK
			}
			return WrongPassword
		}
	}
	return Absent
}

// Insert appends a record to the snapshot. It does not check
// uniqueness; callers must Lookup first or duplicate usernames will
// accumulate.
func (s *Store) Insert(username, password string) {
	s.records = append(s.records, Record{Username: username, Password: password})
}

// Len reports the number of records currently in the snapshot.
func (s *Store) Len() int {
	return len(s.records)
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Flush writes the full snapshot back to the backing file. A write
// failure here is a fatal shutdown condition for the server; callers
// must not ignore the error.
func (s *Store) Flush() error {
	var b strings.Builder
	for _, rec := range s.records {
		fmt.Fprintf(&b, "username=%s;password=%s\n", rec.Username, rec.Password)
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("account: flush %s: %w", s.path, err)
	}
	return nil
}

// parseLine decodes one "username=<u>;password=<p>" line.
func parseLine(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Record{}, false
	}

	var rec Record
	for _, field := range strings.Split(line, ";") {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Record{}, false
		}
		switch key {
		case "username":
			rec.Username = value
		case "password":
			rec.Password = value
		}
	}
	if rec.Username == "" {
		return Record{}, false
	}
	return rec, true
}
