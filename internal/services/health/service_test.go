package health

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker bool

func (f fakeBroker) Connected() bool { return bool(f) }

func TestStatusWithoutChecks(t *testing.T) {
	report := NewService().Status(context.Background())
	assert.True(t, report.OK)
	assert.Nil(t, report.Checks)
}

func TestStatusRunsEveryCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectPing()

	svc := NewService(Database(db), Redis(client))
	svc.Add(Broker(fakeBroker(true)))

	report := svc.Status(context.Background())
	assert.True(t, report.OK)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "ok", "broker": "ok"}, report.Checks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusReportsFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	report := NewService(Redis(client), Broker(fakeBroker(false))).Status(context.Background())
	assert.False(t, report.OK)
	assert.NotEqual(t, "ok", report.Checks["redis"])
	assert.Equal(t, "connection closed", report.Checks["broker"])
}
