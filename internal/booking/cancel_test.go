package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

func newCancellerMock(t *testing.T) (*Canceller, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	c := NewCanceller(db,
		repository.NewWindowRepo(db),
		repository.NewReservationRepo(db),
		repository.NewQueueRepo(db),
		2,
	)
	return c, mock
}

func activeReservationRow(id uint64, validated, checkedIn bool) *sqlmock.Rows {
	status := "ACTIVE"
	return sqlmock.NewRows(reservationColumns()).
		AddRow(id, testUserID, testOrgID, testWindowID, testDate, status, validated, checkedIn, "tok", true,
			time.Now().UTC(), time.Now().UTC())
}

func expectWithdrawPreamble(mock sqlmock.Sqlmock, reservationRows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(uint64(41)).
		WillReturnRows(activeReservationRow(41, false, false))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM slot_windows WHERE id = ? AND organization_id = ? FOR UPDATE`)).
		WithArgs(testWindowID, testOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testWindowID))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(41)).
		WillReturnRows(reservationRows)
}

func TestWithdrawRenumbersLaterPositions(t *testing.T) {
	c, mock := newCancellerMock(t)

	expectWithdrawPreamble(mock, activeReservationRow(41, false, false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM queue_entries WHERE reservation_id = ?`)).
		WithArgs(uint64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id", "organization_id", "window_id", "visit_date", "position", "created_at"}).
			AddRow(41, testOrgID, testWindowID, testDate, 2, time.Now().UTC()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM queue_entries WHERE reservation_id = ?`)).
		WithArgs(uint64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET position = position - 1`)).
		WithArgs(testOrgID, testWindowID, testDateStr, uint32(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'WITHDRAWN' WHERE id = ? AND status = 'ACTIVE'`)).
		WithArgs(uint64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := c.Withdraw(context.Background(), 41, Requester{UserID: testUserID})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawUnknownReservation(t *testing.T) {
	c, mock := newCancellerMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows(reservationColumns()))

	err := c.Withdraw(context.Background(), 41, Requester{UserID: testUserID})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawTwiceReportsAlreadyWithdrawn(t *testing.T) {
	c, mock := newCancellerMock(t)

	withdrawn := sqlmock.NewRows(reservationColumns()).
		AddRow(41, testUserID, testOrgID, testWindowID, testDate, "WITHDRAWN", false, false, "tok", true,
			time.Now().UTC(), time.Now().UTC())
	expectWithdrawPreamble(mock, withdrawn)
	mock.ExpectRollback()

	err := c.Withdraw(context.Background(), 41, Requester{UserID: testUserID})
	assert.ErrorIs(t, err, repository.ErrAlreadyWithdrawn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawByForeignUserForbidden(t *testing.T) {
	c, mock := newCancellerMock(t)

	expectWithdrawPreamble(mock, activeReservationRow(41, false, false))
	mock.ExpectRollback()

	err := c.Withdraw(context.Background(), 41, Requester{UserID: 777})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawByOwningOrganizationAllowed(t *testing.T) {
	c, mock := newCancellerMock(t)

	expectWithdrawPreamble(mock, activeReservationRow(41, false, false))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM queue_entries WHERE reservation_id = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id", "organization_id", "window_id", "visit_date", "position", "created_at"}).
			AddRow(41, testOrgID, testWindowID, testDate, 1, time.Now().UTC()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM queue_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET position = position - 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'WITHDRAWN'`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := c.Withdraw(context.Background(), 41, Requester{OrgID: testOrgID})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawCheckedInReservationFrozen(t *testing.T) {
	c, mock := newCancellerMock(t)

	expectWithdrawPreamble(mock, activeReservationRow(41, true, true))
	mock.ExpectRollback()

	err := c.Withdraw(context.Background(), 41, Requester{UserID: testUserID})
	assert.ErrorIs(t, err, repository.ErrAlreadyValidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
