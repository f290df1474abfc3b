package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/upb/publish-guard/repositories"
)

type txMarkerKey struct{}

// MockTransactionManager is a mock implementation of TransactionManager.
// InTransaction runs fn with a marked context and mirrors commit/rollback
// on the mock transaction.
type MockTransactionManager struct {
	mock.Mock
	Tx *MockTransaction
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txMarkerKey{}, true)
	if err := fn(txCtx, m.Tx); err != nil {
		_ = m.Tx.Rollback()
		return err
	}
	return m.Tx.Commit()
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	m.committed = true
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	m.rolledback = true
	return args.Error(0)
}

func (m *MockTransaction) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

func newMockTxManager() (*MockTransactionManager, *MockTransaction) {
	tx := new(MockTransaction)
	return &MockTransactionManager{Tx: tx}, tx
}

func TestWithTransaction_Success(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx := newMockTxManager()

	mockTxMgr.On("InTransaction", ctx).Return(nil)
	mockTx.On("Commit").Return(nil)

	var sawTx bool
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		sawTx, _ = ctx.Value(txMarkerKey{}).(bool)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, sawTx)
	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledback)
	mockTxMgr.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_ErrorInFunction(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx := newMockTxManager()
	expectedErr := errors.New("operation failed")

	mockTxMgr.On("InTransaction", ctx).Return(nil)
	mockTx.On("Rollback").Return(nil)

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		return expectedErr
	})

	assert.Equal(t, expectedErr, err)
	assert.False(t, mockTx.committed)
	assert.True(t, mockTx.rolledback)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_BeginError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, _ := newMockTxManager()

	mockTxMgr.On("InTransaction", ctx).Return(errors.New("failed to begin transaction"))

	called := false
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)
}

func TestWithTransaction_CommitError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx := newMockTxManager()

	mockTxMgr.On("InTransaction", ctx).Return(nil)
	mockTx.On("Commit").Return(errors.New("commit failed"))

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context) error {
		return nil
	})

	assert.EqualError(t, err, "commit failed")
	assert.True(t, mockTx.committed)
}

func TestWithTransactionResult_Success(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx := newMockTxManager()

	mockTxMgr.On("InTransaction", ctx).Return(nil)
	mockTx.On("Commit").Return(nil)

	result, err := WithTransactionResult(ctx, mockTxMgr, func(ctx context.Context) (string, error) {
		return "success", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.True(t, mockTx.committed)
}

func TestWithTransactionResult_ErrorInFunction(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx := newMockTxManager()
	expectedErr := errors.New("operation failed")

	mockTxMgr.On("InTransaction", ctx).Return(nil)
	mockTx.On("Rollback").Return(nil)

	result, err := WithTransactionResult(ctx, mockTxMgr, func(ctx context.Context) (int, error) {
		return 7, expectedErr
	})

	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 0, result)
	assert.True(t, mockTx.rolledback)
}

func TestWithTransactionResult_CommitError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr, mockTx := newMockTxManager()

	mockTxMgr.On("InTransaction", ctx).Return(nil)
	mockTx.On("Commit").Return(errors.New("commit failed"))

	result, err := WithTransactionResult(ctx, mockTxMgr, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	assert.Error(t, err)
	assert.Equal(t, 0, result)
}
