package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paypadi/wallet-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestAccountsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_accounts.sql")

	checks := []string{
		"CREATE TABLE accounts",
		"CONSTRAINT ux_accounts_user_id UNIQUE (user_id)",
		"CHECK (available_minor >= 0)",
		"CHECK (reserved_minor >= 0)",
		"version BIGINT NOT NULL DEFAULT 0",
		"DROP TABLE IF EXISTS accounts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerEntriesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_ledger_entries.sql")

	checks := []string{
		"CREATE TABLE ledger_entries",
		"CHECK (amount_minor > 0)",
		"CREATE UNIQUE INDEX ux_ledger_entries_idempotency_key",
		"WHERE idempotency_key IS NOT NULL",
		"REFERENCES accounts (id)",
		"DROP TABLE IF EXISTS ledger_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReservationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_reservations.sql")

	checks := []string{
		"CREATE TABLE reservations",
		"CONSTRAINT ux_reservations_entry_id UNIQUE (entry_id)",
		"CHECK (amount_minor > 0)",
		"idx_reservations_expires_at",
		"DROP TABLE IF EXISTS reservations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
