package sink

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/udplog/udplogd/internal/event"
)

func TestPGBackendSend(t *testing.T) {
	t.Run("inserts a batch in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		prep := mock.ExpectPrepare("INSERT INTO udplog_events")
		prep.ExpectExec().
			WithArgs("metrics", []byte(`{"value":1}`), 1700000000.5).
			WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().
			WithArgs("startup", []byte(`{}`), float64(0)).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		be := &pgBackend{db: db}
		batch := []*event.Event{
			{Category: "metrics", Fields: map[string]any{"value": float64(1)}, Timestamp: 1700000000.5},
			{Category: "startup", Fields: map[string]any{}},
		}
		if err := be.send(context.Background(), batch); err != nil {
			t.Fatalf("send() failed: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("rolls back when an insert fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		prep := mock.ExpectPrepare("INSERT INTO udplog_events")
		prep.ExpectExec().
			WithArgs("metrics", []byte(`{"value":1}`), float64(0)).
			WillReturnError(context.DeadlineExceeded)
		mock.ExpectRollback()

		be := &pgBackend{db: db}
		batch := []*event.Event{
			{Category: "metrics", Fields: map[string]any{"value": float64(1)}},
		}
		if err := be.send(context.Background(), batch); err == nil {
			t.Fatal("send() succeeded, want insert error")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestPGBackendDisconnect(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectClose()

	be := &pgBackend{db: db}
	if err := be.disconnect(); err != nil {
		t.Fatalf("disconnect() failed: %v", err)
	}
	if be.db != nil {
		t.Error("db handle not cleared")
	}
	// disconnecting again is a no-op
	if err := be.disconnect(); err != nil {
		t.Fatalf("second disconnect() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
