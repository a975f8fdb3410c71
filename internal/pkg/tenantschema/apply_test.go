package tenantschema

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSeedDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func expectStaffLookup(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT \\* FROM `staff_users`").WillReturnRows(rows)
}

func staffRow(id uint, role string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "role"}).AddRow(id, role, role)
}

func noRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

func TestSeedIsIdempotent(t *testing.T) {
	db, mock := newSeedDB(t)

	// Fresh database: every lookup misses, everything gets created.
	for i := 0; i < 3; i++ {
		expectStaffLookup(mock, noRows("id", "username", "role"))
		mock.ExpectExec("INSERT INTO `staff_users`").WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	for i := 0; i < 4; i++ {
		mock.ExpectQuery("SELECT \\* FROM `cafe_tables`").WillReturnRows(noRows("id", "number"))
		mock.ExpectExec("INSERT INTO `cafe_tables`").WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	for i := 0; i < 4; i++ {
		mock.ExpectQuery("SELECT \\* FROM `menu_categories`").WillReturnRows(noRows("id", "name"))
		mock.ExpectExec("INSERT INTO `menu_categories`").WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}

	creds, err := Seed(db)
	require.NoError(t, err)
	require.Len(t, creds, 3)
	assert.Equal(t, StaffRoleAdmin, creds[0].Role)
	assert.Equal(t, StaffRoleManager, creds[1].Role)
	assert.Equal(t, StaffRoleCashier, creds[2].Role)
	for _, c := range creds {
		assert.Len(t, c.Password, 24)
	}

	// Second run over a fully seeded database: lookups only. The ordered
	// expectations below admit no INSERT, so a duplicate write would fail.
	expectStaffLookup(mock, staffRow(1, StaffRoleAdmin))
	expectStaffLookup(mock, staffRow(2, StaffRoleManager))
	expectStaffLookup(mock, staffRow(3, StaffRoleCashier))
	for number := 1; number <= 4; number++ {
		mock.ExpectQuery("SELECT \\* FROM `cafe_tables`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "number", "seats"}).AddRow(number, number, 4))
	}
	for i, name := range []string{"Hot Drinks", "Cold Drinks", "Snacks", "Meals"} {
		mock.ExpectQuery("SELECT \\* FROM `menu_categories`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sort_order"}).AddRow(i+1, name, i))
	}

	creds, err = Seed(db)
	require.NoError(t, err)
	assert.Empty(t, creds, "re-seeding must not mint new credentials")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedResumesAfterPartialCompletion(t *testing.T) {
	db, mock := newSeedDB(t)

	// A prior attempt got as far as the admin account and the first two
	// tables. Resuming fills in the rest without touching what exists.
	expectStaffLookup(mock, staffRow(1, StaffRoleAdmin))
	expectStaffLookup(mock, noRows("id", "username", "role"))
	mock.ExpectExec("INSERT INTO `staff_users`").WillReturnResult(sqlmock.NewResult(2, 1))
	expectStaffLookup(mock, noRows("id", "username", "role"))
	mock.ExpectExec("INSERT INTO `staff_users`").WillReturnResult(sqlmock.NewResult(3, 1))

	for number := 1; number <= 2; number++ {
		mock.ExpectQuery("SELECT \\* FROM `cafe_tables`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "number", "seats"}).AddRow(number, number, 4))
	}
	for number := 3; number <= 4; number++ {
		mock.ExpectQuery("SELECT \\* FROM `cafe_tables`").WillReturnRows(noRows("id", "number"))
		mock.ExpectExec("INSERT INTO `cafe_tables`").WillReturnResult(sqlmock.NewResult(int64(number), 1))
	}

	for i := 0; i < 4; i++ {
		mock.ExpectQuery("SELECT \\* FROM `menu_categories`").WillReturnRows(noRows("id", "name"))
		mock.ExpectExec("INSERT INTO `menu_categories`").WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}

	creds, err := Seed(db)
	require.NoError(t, err)
	require.Len(t, creds, 2, "credentials only for accounts created by this run")
	assert.Equal(t, StaffRoleManager, creds[0].Role)
	assert.Equal(t, StaffRoleCashier, creds[1].Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}
