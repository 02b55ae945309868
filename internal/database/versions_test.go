package database

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestVersionStore_MySQL(t *testing.T) {
	conn, mock := newMock(t, MySQL)
	store := NewVersionStore(conn, "")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `dbshift_versions` (version VARCHAR(255) NOT NULL PRIMARY KEY, applied_at TIMESTAMP NOT NULL)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM `dbshift_versions` ORDER BY applied_at, version")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001_users").AddRow("002_email"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `dbshift_versions` (version, applied_at) VALUES (?, ?)")).
		WithArgs("003_orders", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `dbshift_versions` WHERE version = ?")).
		WithArgs("003_orders").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := store.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable() unexpected error: %v", err)
	}
	applied, err := store.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied() unexpected error: %v", err)
	}
	if want := []string{"001_users", "002_email"}; !reflect.DeepEqual(applied, want) {
		t.Errorf("Applied() = %v, want %v", applied, want)
	}
	if err := store.Record(ctx, "003_orders"); err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	if err := store.Remove(ctx, "003_orders"); err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVersionStore_Postgres(t *testing.T) {
	conn, mock := newMock(t, Postgres)
	store := NewVersionStore(conn, "schema_versions")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "schema_versions" (version, applied_at) VALUES ($1, $2)`)).
		WithArgs("001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "schema_versions" WHERE version = $1`)).
		WithArgs("001").
		WillReturnError(errors.New("permission denied"))

	ctx := context.Background()
	if err := store.Record(ctx, "001"); err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	if err := store.Remove(ctx, "001"); err == nil {
		t.Error("Remove() expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
