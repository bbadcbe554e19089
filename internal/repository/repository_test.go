package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/model"
)

var activityRowColumns = []string{
	"id", "lead_id", "user_id", "action", "entity_type", "entity_id", "entity_name",
	"description", "metadata", "user_name", "user_email", "created_at",
}

func TestActivityInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	now := time.Now().UTC()
	name := "Asha Rao"
	a := &model.Activity{
		Action:      model.ActionDeleted,
		EntityType:  model.EntityLead,
		EntityID:    4,
		EntityName:  &name,
		Description: "Lead deleted - Asha Rao",
		Metadata:    json.RawMessage(`{"reason":"manual_deletion"}`),
		CreatedAt:   now,
	}
	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs(nil, nil, "deleted", "lead", uint64(4), "Asha Rao",
			"Lead deleted - Asha Rao", `{"reason":"manual_deletion"}`, nil, nil, now).
		WillReturnResult(sqlmock.NewResult(11, 1))

	require.NoError(t, repo.Insert(context.Background(), a))
	assert.Equal(t, uint64(11), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityList_FiltersAndCorruptMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(activityRowColumns).
		AddRow(2, 4, 1, "stage-changed", "lead", 4, "Asha Rao", "Lead stage changed from new to attempted 1",
			`{"from":"new","to":"attempted 1"}`, "Admin", "admin@example.com", now).
		AddRow(1, 4, 1, "updated", "lead", 4, "Asha Rao", "Lead updated - fields changed: budget",
			`{not json`, "Admin", "admin@example.com", now)
	mock.ExpectQuery(`FROM activities WHERE lead_id = \? AND action = \? ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs(uint64(4), "stage-changed", 20, 0).
		WillReturnRows(rows)

	lead := uint64(4)
	items, err := repo.List(context.Background(), ActivityFilter{LeadID: &lead, Action: "stage-changed", Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.ActionStageChanged, items[0].Action)
	assert.JSONEq(t, `{"from":"new","to":"attempted 1"}`, string(items[0].Metadata))
	assert.Nil(t, items[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM activities WHERE id = \?`).WithArgs(uint64(8)).WillReturnRows(sqlmock.NewRows(activityRowColumns))
	_, err = NewActivityRepo(db).GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestCommentRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCommentRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM lead_comments c\s+LEFT JOIN users u ON u\.id = c\.user_id\s+WHERE c\.lead_id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "user_id", "name", "description", "created_at"}).
			AddRow(2, 3, 1, "Admin", "called back", now).
			AddRow(1, 3, nil, nil, "first call", now))
	items, err := repo.ListByLead(ctx, 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].UserName)
	assert.Equal(t, "Admin", *items[0].UserName)
	assert.Nil(t, items[1].UserID)

	mock.ExpectQuery(`FROM lead_comments WHERE id = \?`).WithArgs(uint64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lead_id", "user_id", "description", "created_at"}))
	_, err = repo.GetByID(ctx, 77)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	mock.ExpectExec(`DELETE FROM lead_comments WHERE id = \?`).WithArgs(uint64(77)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, repo.Delete(ctx, 77))

	uid := uint64(1)
	c := &model.LeadComment{LeadID: 999999, UserID: &uid, Description: "hello", CreatedAt: now}
	mock.ExpectExec(`INSERT INTO lead_comments`).WithArgs(uint64(999999), uint64(1), "hello", now).
		WillReturnResult(sqlmock.NewResult(5, 1))
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, uint64(5), c.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrokerStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`LEFT JOIN leads l ON l\.broker_id = b\.id\s+WHERE \(b\.name LIKE \? OR b\.company LIKE \?\)\s+GROUP BY`).
		WithArgs("attempted 1", "attempted 2", "unqualified", "dead lead", "site visited", "%acme%", "%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "company", "a1", "a2", "u", "d", "s", "f", "t"}).
			AddRow(1, "Ravi", "Acme Realty", 2, 1, 0, 1, 3, 4, 9).
			AddRow(2, "Zoya", "Acme Homes", 0, 0, 0, 0, 0, 0, 0))

	stats, err := NewBrokerRepo(db).Stats(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, model.BrokerStats{ID: 1, Name: "Ravi", Company: "Acme Realty",
		Attempted1: 2, Attempted2: 1, DeadLead: 1, SiteVisited: 3, FollowUp: 4, TotalLeads: 9}, stats[0])
	assert.Equal(t, 0, stats[1].TotalLeads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrokerDelete_UnlinksInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE leads SET broker_id = NULL WHERE broker_id = \?`).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE users SET broker_id = NULL WHERE broker_id = \?`).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM brokers WHERE id = \?`).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewBrokerRepo(db).Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrokerCreate_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO brokers`).WillReturnError(&mysql.MySQLError{Number: 1062})
	err = NewBrokerRepo(db).Create(context.Background(), &model.Broker{Email: "x@y.z"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestBrokerCreate_PlainErrorMentioning1062(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO brokers`).WillReturnError(errors.New("read tcp: 1062 bytes then reset"))
	err = NewBrokerRepo(db).Create(context.Background(), &model.Broker{Email: "x@y.z"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)

	assert.False(t, isDuplicate(errors.New("Error 1062: looks like a duplicate")))
	assert.True(t, isDuplicate(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
}

func TestBrokerList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	active := true
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM brokers WHERE is_active = \? AND company = \? ORDER BY joined_at DESC`).
		WithArgs(true, "Acme", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "company", "email", "phone", "commission",
			"total_deals", "total_revenue", "is_active", "joined_at"}).
			AddRow(1, "Ravi", "Acme", "ravi@acme.in", "1", nil, 3, "1500000", true, now))

	items, err := NewBrokerRepo(db).List(context.Background(), BrokerFilter{Company: "Acme", IsActive: &active, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Commission)
	assert.Equal(t, "1500000", items[0].TotalRevenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)
	now := time.Now().UTC()
	cols := []string{"id", "name", "email", "password_hash", "role", "broker_id", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery(`FROM users WHERE id=\?`).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, "Ravi", "ravi@acme.in", "h", "broker", 7, true, now, now))
	mock.ExpectQuery(`FROM users WHERE id=\?`).WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(6, "Nobody", "n@x.y", "h", nil, nil, true, now, now))
	mock.ExpectQuery(`FROM users WHERE id=\?`).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols))

	u, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "broker", u.RoleName())
	require.NotNil(t, u.BrokerID)
	assert.Equal(t, uint64(7), *u.BrokerID)

	u, err = repo.GetByID(context.Background(), 6)
	require.NoError(t, err)
	assert.Nil(t, u.Role)

	_, err = repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, access.ErrUnknownUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_LinkBroker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET broker_id=\?, role=\? WHERE id=\?`).
		WithArgs(uint64(3), "broker", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, NewUserRepo(db).LinkBroker(context.Background(), 5, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRotate_RevokedTokenRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at`).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = NewTokenRepo(db).Rotate(context.Background(), 1, "old", "new", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenValidate_Expired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`).WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(1, time.Now().UTC().Add(-time.Hour), nil))
	_, err = NewTokenRepo(db).ValidateRefresh(context.Background(), "h")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}
