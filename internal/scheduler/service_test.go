package scheduler

import (
	"context"
	"testing"

	"github.com/moodlog/emotion-journal/internal/config"
	"github.com/moodlog/emotion-journal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDigestRunner is a mock implementation of the digest service
type MockDigestRunner struct {
	mock.Mock
}

func (m *MockDigestRunner) Run(ctx context.Context, period string) (*models.Digest, error) {
	args := m.Called(ctx, period)
	return args.Get(0).(*models.Digest), args.Error(1)
}

func TestCronExpression(t *testing.T) {
	tests := []struct {
		schedule string
		expected string
		wantErr  bool
	}{
		{schedule: "daily", expected: "0 0 9 * * *"},
		{schedule: "weekly", expected: "0 0 9 * * MON"},
		{schedule: "hourly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			expression, err := CronExpression(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, expression)
		})
	}
}

func TestService_Start_Disabled(t *testing.T) {
	runner := &MockDigestRunner{}
	service := NewService(&config.Config{}, runner)

	require.NoError(t, service.Start())
	assert.Empty(t, service.cron.Entries())
	service.Stop()
}

func TestService_Start_Weekly(t *testing.T) {
	runner := &MockDigestRunner{}
	service := NewService(&config.Config{DigestSchedule: "weekly"}, runner)

	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Len(t, service.cron.Entries(), 1)
}

func TestService_runDigest(t *testing.T) {
	runner := &MockDigestRunner{}
	runner.On("Run", mock.Anything, "daily").Return(&models.Digest{}, nil).Once()

	service := NewService(&config.Config{DigestSchedule: "daily"}, runner)
	service.runDigest()

	runner.AssertExpectations(t)
}
