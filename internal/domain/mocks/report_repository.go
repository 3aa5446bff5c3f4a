package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// MockReportRepository is a mock type for the ReportRepository type
type MockReportRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, r, skills
func (_m *MockReportRepository) Save(ctx domain.Context, r domain.Report, skills []string) error {
	ret := _m.Called(ctx, r, skills)
	return ret.Error(0)
}

// Get provides a mock function with given fields: ctx, sessionID
func (_m *MockReportRepository) Get(ctx domain.Context, sessionID string) (domain.Report, error) {
	ret := _m.Called(ctx, sessionID)

	var r domain.Report
	if v := ret.Get(0); v != nil {
		r = v.(domain.Report)
	}
	return r, ret.Error(1)
}

// NewMockReportRepository creates a new instance of MockReportRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockReportRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReportRepository {
	m := &MockReportRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
