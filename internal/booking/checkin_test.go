package booking

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

const testToken = "9f2c4a1e7b3d5906c8aa"

func newValidatorMock(t *testing.T) (*Validator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewValidator(repository.NewReservationRepo(db)), mock
}

func checkinColumns() []string {
	return []string{"id", "display_name", "label", "visit_date", "status", "validated", "checked_in", "position"}
}

func expectTokenLookup(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE r.checkin_token = ? AND r.organization_id = ?`)).
		WithArgs(testToken, testOrgID).
		WillReturnRows(rows)
}

func TestScanReturnsPromptWithoutConsumingToken(t *testing.T) {
	v, mock := newValidatorMock(t)

	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()).
		AddRow(41, "Dana Visitor", "Morning", testDate, "ACTIVE", false, false, 3))

	d, err := v.Scan(context.Background(), testToken, testOrgID)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), d.ReservationID)
	assert.Equal(t, "Dana Visitor", d.DisplayName)
	assert.Equal(t, uint32(3), d.Position)
	assert.False(t, d.CheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanUnknownToken(t *testing.T) {
	v, mock := newValidatorMock(t)

	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()))

	_, err := v.Scan(context.Background(), testToken, testOrgID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanWithdrawnReservationLooksUnknown(t *testing.T) {
	v, mock := newValidatorMock(t)

	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()).
		AddRow(41, "Dana Visitor", "Morning", testDate, "WITHDRAWN", false, false, 0))

	_, err := v.Scan(context.Background(), testToken, testOrgID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanConsumedTokenReportsCheckedIn(t *testing.T) {
	v, mock := newValidatorMock(t)

	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()).
		AddRow(41, "Dana Visitor", "Morning", testDate, "ACTIVE", true, true, 3))

	_, err := v.Scan(context.Background(), testToken, testOrgID)
	assert.ErrorIs(t, err, repository.ErrAlreadyCheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmConsumesTokenOnce(t *testing.T) {
	v, mock := newValidatorMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`SET validated = 1, checked_in = 1`)).
		WithArgs(testToken, testOrgID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()).
		AddRow(41, "Dana Visitor", "Morning", testDate, "ACTIVE", true, true, 3))

	d, err := v.Confirm(context.Background(), testToken, testOrgID)
	require.NoError(t, err)
	assert.True(t, d.Validated)
	assert.True(t, d.CheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSecondAttemptRejected(t *testing.T) {
	v, mock := newValidatorMock(t)

	// The guard on checked_in makes the losing confirm affect zero rows.
	mock.ExpectExec(regexp.QuoteMeta(`SET validated = 1, checked_in = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()).
		AddRow(41, "Dana Visitor", "Morning", testDate, "ACTIVE", true, true, 3))

	_, err := v.Confirm(context.Background(), testToken, testOrgID)
	assert.ErrorIs(t, err, repository.ErrAlreadyCheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmForeignOrganizationToken(t *testing.T) {
	v, mock := newValidatorMock(t)

	// The token was minted for another organization, so the scoped
	// update and the scoped lookup both come back empty.
	mock.ExpectExec(regexp.QuoteMeta(`SET validated = 1, checked_in = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectTokenLookup(mock, sqlmock.NewRows(checkinColumns()))

	_, err := v.Confirm(context.Background(), testToken, testOrgID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
