package dao

import (
	"testing"
)

type MockDaoRegistry struct {
	File *MockFileDao
}

func (m *MockDaoRegistry) ToDaoRegistry() *DaoRegistry {
	return &DaoRegistry{
		File: m.File,
	}
}

func GetMockDaoRegistry(t *testing.T) *MockDaoRegistry {
	return &MockDaoRegistry{
		File: NewMockFileDao(t),
	}
}
