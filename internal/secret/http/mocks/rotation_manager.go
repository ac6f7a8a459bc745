// Package mocks provides mock implementations for testing the secret HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
)

// MockRotationManager is a mock implementation of RotationManager for testing.
type MockRotationManager struct {
	mock.Mock
}

// Load mocks the Load method of RotationManager.
func (m *MockRotationManager) Load(ctx context.Context, initial map[secretDomain.SecretType][]byte) error {
	args := m.Called(ctx, initial)
	return args.Error(0)
}

// GetActive mocks the GetActive method of RotationManager.
func (m *MockRotationManager) GetActive(
	ctx context.Context,
	secretType secretDomain.SecretType,
) (*secretDomain.Secret, error) {
	args := m.Called(ctx, secretType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretDomain.Secret), args.Error(1)
}

// GetByVersion mocks the GetByVersion method of RotationManager.
func (m *MockRotationManager) GetByVersion(ctx context.Context, id string) (*secretDomain.Secret, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretDomain.Secret), args.Error(1)
}

// Lookup mocks the Lookup method of RotationManager.
func (m *MockRotationManager) Lookup(ctx context.Context, id string) (*secretDomain.Secret, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretDomain.Secret), args.Error(1)
}

// Acceptable mocks the Acceptable method of RotationManager.
func (m *MockRotationManager) Acceptable(
	ctx context.Context,
	secretType secretDomain.SecretType,
) ([]*secretDomain.Secret, error) {
	args := m.Called(ctx, secretType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretDomain.Secret), args.Error(1)
}

// RecordUsage mocks the RecordUsage method of RotationManager.
func (m *MockRotationManager) RecordUsage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// NeedsRotation mocks the NeedsRotation method of RotationManager.
func (m *MockRotationManager) NeedsRotation(
	ctx context.Context,
	secretType secretDomain.SecretType,
) (*secretDomain.RotationNeed, error) {
	args := m.Called(ctx, secretType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretDomain.RotationNeed), args.Error(1)
}

// Rotate mocks the Rotate method of RotationManager.
func (m *MockRotationManager) Rotate(
	ctx context.Context,
	secretType secretDomain.SecretType,
	reason string,
) (*secretDomain.RotationResult, error) {
	args := m.Called(ctx, secretType, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretDomain.RotationResult), args.Error(1)
}

// RunRotationCycle mocks the RunRotationCycle method of RotationManager.
func (m *MockRotationManager) RunRotationCycle(ctx context.Context) ([]*secretDomain.RotationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*secretDomain.RotationResult), args.Error(1)
}

// HealthCheck mocks the HealthCheck method of RotationManager.
func (m *MockRotationManager) HealthCheck(ctx context.Context) (*secretDomain.HealthReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretDomain.HealthReport), args.Error(1)
}

// Cleanup mocks the Cleanup method of RotationManager.
func (m *MockRotationManager) Cleanup(ctx context.Context) (*secretUseCase.CleanupResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretUseCase.CleanupResult), args.Error(1)
}

// List mocks the List method of RotationManager.
func (m *MockRotationManager) List(ctx context.Context) ([]secretDomain.SecretStatusView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]secretDomain.SecretStatusView), args.Error(1)
}

// SetAuditLogger mocks the SetAuditLogger method of RotationManager.
func (m *MockRotationManager) SetAuditLogger(auditLogger secretUseCase.AuditLogger) {
	m.Called(auditLogger)
}
