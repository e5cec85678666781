package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/Clinic-BookingService/pkg/dbmetrics"
)

// -- Fakes --

type fakeTx struct {
	rolledBack bool
	committed  bool
}

func (f *fakeTx) ExecContext(_ context.Context, _ string, _ ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) QueryContext(_ context.Context, _ string, _ ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (f *fakeTx) QueryRowContext(_ context.Context, _ string, _ ...interface{}) *sql.Row {
	return nil
}

func (f *fakeTx) Commit() error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback() error {
	f.rolledBack = true
	return nil
}

type fakeTxBeginner struct {
	begins int
	txs    []*fakeTx
}

func (f *fakeTxBeginner) BeginTx(_ context.Context, _ *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	f.begins++
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func serializationFailure() error {
	return &pq.Error{Code: "40001", Message: "could not serialize access due to concurrent update"}
}

// Ошибка 40001, обернутая так, как это делают репозиторий и usecase
func repoWrapped(err error) error {
	errExec := errors.New("repository: failed to execute query")
	errInternal := errors.New("internal error")
	wrapped := fmt.Errorf("%w: execute query: %w", errExec, err)
	return fmt.Errorf("%w: failed to get appointments: %w", errInternal, wrapped)
}

// -- Tests --

func TestIsSerializationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"raw 40001", serializationFailure(), true},
		{"other pq code", &pq.Error{Code: "23505"}, false},
		{"40001 wrapped by repository and usecase", repoWrapped(serializationFailure()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSerializationFailure(tt.err))
		})
	}
}

func TestDoSerializable_RetriesStatementLevelFailure(t *testing.T) {
	db := &fakeTxBeginner{}
	m := NewTransactionManager(db)

	// Первые две попытки падают на 40001 внутри самой транзакции
	// (обернутом по дороге наверх), третья проходит
	attempts := 0
	err := m.DoSerializable(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return repoWrapped(serializationFailure())
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, db.begins)
	assert.True(t, db.txs[0].rolledBack)
	assert.True(t, db.txs[1].rolledBack)
	assert.True(t, db.txs[2].committed)
}

func TestDoSerializable_GivesUpAfterMaxAttempts(t *testing.T) {
	db := &fakeTxBeginner{}
	m := NewTransactionManager(db)

	err := m.DoSerializable(context.Background(), func(_ context.Context) error {
		return repoWrapped(serializationFailure())
	})

	require.Error(t, err)
	assert.True(t, IsSerializationFailure(err))
	assert.Equal(t, maxSerializableAttempts, db.begins)
}

func TestDoSerializable_NonRetryableErrorReturnsImmediately(t *testing.T) {
	db := &fakeTxBeginner{}
	m := NewTransactionManager(db)

	boom := errors.New("boom")
	err := m.DoSerializable(context.Background(), func(_ context.Context) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.begins)
}
