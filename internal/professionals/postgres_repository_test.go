package professionals

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proRow(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	return mock.NewRows([]string{
		"id", "name", "email", "phone", "whatsapp_number",
		"stripe_customer_id", "stripe_subscription_id",
		"subscription_tier", "subscription_status", "created_at", "updated_at",
	})
}

func TestGetByWhatsAppNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM professionals WHERE whatsapp_number").
		WithArgs("+5511999990000").
		WillReturnRows(proRow(mock).AddRow(
			"pro-1", "Maria Santos", "maria@example.com", "+5511988880000", "+5511999990000",
			"cus_123", "", "", "inactive", now, now,
		))

	repo := NewPostgresRepository(mock)
	pro, err := repo.GetByWhatsAppNumber(context.Background(), "+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "pro-1", pro.ID)
	assert.Equal(t, "cus_123", pro.StripeCustomerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM professionals WHERE id").
		WithArgs("missing").
		WillReturnRows(proRow(mock))

	repo := NewPostgresRepository(mock)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM professionals ORDER BY created_at").
		WillReturnRows(proRow(mock).
			AddRow("pro-1", "Maria Santos", "maria@example.com", "", "+5511999990000", "", "", "", "active", now, now).
			AddRow("pro-2", "Ana Lima", "ana@example.com", "", "+5511999990001", "", "", "", "inactive", now, now))

	repo := NewPostgresRepository(mock)
	pros, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pros, 2)
	assert.Equal(t, "pro-2", pros[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSubscription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE professionals").
		WithArgs("pro-1", "sub_123", "pro", SubscriptionActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.SetSubscription(context.Background(), "pro-1", "sub_123", "pro", SubscriptionActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetSubscription_MissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE professionals").
		WithArgs("ghost", "sub_123", "pro", SubscriptionActive).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPostgresRepository(mock)
	err = repo.SetSubscription(context.Background(), "ghost", "sub_123", "pro", SubscriptionActive)
	assert.ErrorIs(t, err, ErrNotFound)
}
