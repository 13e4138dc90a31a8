package database

import (
	"testing"

	"github.com/swiftcart/swiftcart/internal/config"
)

func TestOpenSQLite(t *testing.T) {
	db, err := open(config.Database{Driver: "sqlite"}, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if db.Dialect().Name().String() != "sqlite" {
		t.Errorf("dialect = %s", db.Dialect().Name())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := open(config.Database{Driver: "oracle"}, "dsn"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
