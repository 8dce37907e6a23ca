package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/services"
)

func TestSetup_RunsWiringOnce(t *testing.T) {
	withServices(t, &Dependencies{})
	t.Cleanup(func() {
		SetWiring(nil)
		wiringLoaded = false
	})

	calls := 0
	SetWiring(func(context.Context) (*Dependencies, error) {
		calls++
		return &Dependencies{KnowledgeBase: &MockKnowledgeBaseService{}}, nil
	})

	_, _, err := executeCommand(t, "", "kb", "status")
	require.NoError(t, err)
	_, _, err = executeCommand(t, "", "kb", "status")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestSetup_WiringError(t *testing.T) {
	withServices(t, &Dependencies{})
	t.Cleanup(func() {
		SetWiring(nil)
		wiringLoaded = false
	})

	boom := errors.New("config unreadable")
	SetWiring(func(context.Context) (*Dependencies, error) { return nil, boom })

	_, _, err := executeCommand(t, "", "kb", "status")

	assert.ErrorIs(t, err, boom)
}

func TestSetup_DataDirSetsEnvironment(t *testing.T) {
	withServices(t, &Dependencies{KnowledgeBase: &MockKnowledgeBaseService{}})
	t.Setenv(services.EnvDataDir, "")

	_, _, err := executeCommand(t, "", "--data-dir", "/srv/referencias", "kb", "status")

	require.NoError(t, err)
	assert.Equal(t, "/srv/referencias", os.Getenv(services.EnvDataDir))
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unavailable knowledge base",
			err:  &domain.UnavailableError{Reason: domain.ReasonNoPDFs},
			want: domain.UserMessage(&domain.UnavailableError{Reason: domain.ReasonNoPDFs}),
		},
		{
			name: "quota",
			err:  fmt.Errorf("embed batch 2: %w", domain.ErrQuotaExhausted),
			want: domain.UserMessage(domain.ErrQuotaExhausted),
		},
		{
			name: "plain error",
			err:  errors.New("unknown flag: --colour"),
			want: "unknown flag: --colour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

func TestSetVersion(t *testing.T) {
	original := version
	t.Cleanup(func() { version = original })

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
