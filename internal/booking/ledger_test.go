package booking

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

const (
	testUserID   = uint64(9)
	testOrgID    = uint64(2)
	testWindowID = uint64(5)
)

var (
	testDate    = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	testDateStr = "2026-09-01"
)

func newLedgerMock(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	l := NewLedger(db,
		repository.NewWindowRepo(db),
		repository.NewReservationRepo(db),
		repository.NewQueueRepo(db),
		2,
	)
	return l, mock
}

func windowColumns() []string {
	return []string{"id", "organization_id", "label", "starts_at", "ends_at", "capacity", "is_active", "created_at", "updated_at"}
}

func windowRow(capacity uint32) *sqlmock.Rows {
	return sqlmock.NewRows(windowColumns()).
		AddRow(testWindowID, testOrgID, "Morning", "09:00:00", "12:00:00", capacity, true, "2026-08-01 10:00:00", "2026-08-01 10:00:00")
}

func reservationColumns() []string {
	return []string{"id", "user_id", "organization_id", "window_id", "visit_date", "status", "validated", "checked_in", "checkin_token", "token_issued", "created_at", "updated_at"}
}

func expectWindowLock(mock sqlmock.Sqlmock, capacity uint32) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM slot_windows WHERE id = ? AND organization_id = ? AND is_active = 1 FOR UPDATE`)).
		WithArgs(testWindowID, testOrgID).
		WillReturnRows(windowRow(capacity))
}

func expectActiveCounts(mock sqlmock.Sqlmock, userHolds, partitionActive int) {
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = ? AND organization_id = ? AND window_id = ? AND visit_date = ? AND status = 'ACTIVE'`)).
		WithArgs(testUserID, testOrgID, testWindowID, testDateStr).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(userHolds))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE organization_id = ? AND window_id = ? AND visit_date = ? AND status = 'ACTIVE'`)).
		WithArgs(testOrgID, testWindowID, testDateStr).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(partitionActive))
}

func expectReservationInsert(mock sqlmock.Sqlmock, id uint64) {
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reservations`)).
		WithArgs(testUserID, testOrgID, testWindowID, testDateStr).
		WillReturnResult(sqlmock.NewResult(int64(id), 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(reservationColumns()).
			AddRow(id, testUserID, testOrgID, testWindowID, testDate, "ACTIVE", false, false, nil, false,
				time.Now().UTC(), time.Now().UTC()))
	mock.ExpectExec(regexp.QuoteMeta(`SET checkin_token = ?, token_issued = 1 WHERE id = ? AND token_issued = 0`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestAdmitAssignsNextPosition(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectBegin()
	expectWindowLock(mock, 10)
	expectActiveCounts(mock, 0, 2)
	expectReservationInsert(mock, 41)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(position), 0) FROM queue_entries`)).
		WithArgs(testOrgID, testWindowID, testDateStr).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO queue_entries`)).
		WithArgs(uint64(41), testOrgID, testWindowID, testDateStr, uint32(3)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	adm, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	require.NoError(t, err)
	assert.Equal(t, uint64(41), adm.Reservation.ID)
	assert.Equal(t, uint32(3), adm.Position)
	assert.True(t, adm.Reservation.TokenIssued)
	require.NotNil(t, adm.Reservation.CheckinToken)
	assert.Len(t, *adm.Reservation.CheckinToken, 20)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitFirstReservationGetsPositionOne(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectBegin()
	expectWindowLock(mock, 1)
	expectActiveCounts(mock, 0, 0)
	expectReservationInsert(mock, 7)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(position), 0) FROM queue_entries`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO queue_entries`)).
		WithArgs(uint64(7), testOrgID, testWindowID, testDateStr, uint32(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	adm, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), adm.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitRejectsWhenFull(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectBegin()
	expectWindowLock(mock, 3)
	expectActiveCounts(mock, 0, 3)
	mock.ExpectRollback()

	_, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitRejectsDuplicate(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectBegin()
	expectWindowLock(mock, 3)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	assert.ErrorIs(t, err, repository.ErrDuplicateReservation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitUnknownWindow(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM slot_windows`)).
		WillReturnRows(sqlmock.NewRows(windowColumns()))
	mock.ExpectRollback()

	_, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitRetriesOnDeadlock(t *testing.T) {
	l, mock := newLedgerMock(t)

	// First attempt loses a lock conflict and rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM slot_windows`)).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	// Second attempt runs the whole unit of work again and succeeds.
	mock.ExpectBegin()
	expectWindowLock(mock, 5)
	expectActiveCounts(mock, 0, 0)
	expectReservationInsert(mock, 11)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(position), 0) FROM queue_entries`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO queue_entries`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	adm, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), adm.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitGivesUpAfterMaxRetries(t *testing.T) {
	l, mock := newLedgerMock(t)

	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	for i := 0; i < 3; i++ { // 1 attempt + maxRetries(2)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM slot_windows`)).WillReturnError(deadlock)
		mock.ExpectRollback()
	}

	_, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	assert.ErrorIs(t, err, repository.ErrStorage)
	var me *mysql.MySQLError
	assert.True(t, errors.As(err, &me))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitRollsBackWhenQueueInsertFails(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectBegin()
	expectWindowLock(mock, 5)
	expectActiveCounts(mock, 0, 0)
	expectReservationInsert(mock, 13)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(position), 0) FROM queue_entries`)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO queue_entries`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := l.Admit(context.Background(), testUserID, testOrgID, testWindowID, testDate)
	assert.ErrorIs(t, err, repository.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionRejectsForeignCaller(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WithArgs(uint64(41)).
		WillReturnRows(sqlmock.NewRows(reservationColumns()).
			AddRow(41, testUserID, testOrgID, testWindowID, testDate, "ACTIVE", false, false, "tok", true,
				time.Now().UTC(), time.Now().UTC()))

	_, err := l.Position(context.Background(), 41, Requester{UserID: 777})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionReturnsCurrentRank(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reservations WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows(reservationColumns()).
			AddRow(41, testUserID, testOrgID, testWindowID, testDate, "ACTIVE", false, false, "tok", true,
				time.Now().UTC(), time.Now().UTC()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT position FROM queue_entries WHERE reservation_id = ?`)).
		WithArgs(uint64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(4))

	pos, err := l.Position(context.Background(), 41, Requester{UserID: testUserID})
	require.NoError(t, err)
	assert.Equal(t, uint32(4), pos)
	assert.NoError(t, mock.ExpectationsWereMet())
}
