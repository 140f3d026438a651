package postgres

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// MockDB provides a wrapper around sql.DB and sqlmock.Sqlmock to simplify testing.
type MockDB struct {
	Mock sqlmock.Sqlmock
	DB   *sql.DB
}

// NewMockDB initializes a new MockDB instance and returns a cleanup function.
// Pings are expected explicitly through ExpectPing.
func NewMockDB(t *testing.T) (*MockDB, func()) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &MockDB{Mock: mock, DB: db}, func() { db.Close() }
}

// ExpectPing sets up an expectation for a successful connection check.
func (m *MockDB) ExpectPing() {
	m.Mock.ExpectPing()
}

// ExpectServerVersion sets up an expectation for the version query.
func (m *MockDB) ExpectServerVersion(version string) {
	m.Mock.ExpectQuery(`SELECT version\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(version))
}
