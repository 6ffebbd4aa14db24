package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	clirotation "github.com/allisson/envie/internal/cli/rotation"
)

type mockRotator struct {
	mock.Mock
}

func (m *mockRotator) Rotate(ctx context.Context) (*clirotation.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clirotation.Result), args.Error(1)
}

func TestRotateMasterKey(t *testing.T) {
	ctx := context.Background()

	t.Run("prints recovery key once on success", func(t *testing.T) {
		mockOrchestrator := &mockRotator{}
		mockOrchestrator.On("Rotate", ctx).Return(&clirotation.Result{
			RecoveryKey:      "cmVjb3Zlcnkta2V5",
			MasterKeyVersion: 3,
		}, nil)

		var out bytes.Buffer
		err := rotateMasterKey(ctx, mockOrchestrator, &out)

		require.NoError(t, err)
		require.Contains(t, out.String(), "Master key rotated to version 3.")
		require.Contains(t, out.String(), "cmVjb3Zlcnkta2V5")
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("prints recovery key even when sealing failed", func(t *testing.T) {
		mockOrchestrator := &mockRotator{}
		mockOrchestrator.On("Rotate", ctx).Return(&clirotation.Result{
			RecoveryKey:      "cmVjb3Zlcnkta2V5",
			MasterKeyVersion: 3,
		}, errors.New("rotation committed but sealing the new key failed"))

		var out bytes.Buffer
		err := rotateMasterKey(ctx, mockOrchestrator, &out)

		require.Error(t, err)
		require.Contains(t, out.String(), "cmVjb3Zlcnkta2V5")
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("prints nothing when rotation aborted", func(t *testing.T) {
		mockOrchestrator := &mockRotator{}
		mockOrchestrator.On("Rotate", ctx).Return(nil, clirotation.ErrStaleLocalKey)

		var out bytes.Buffer
		err := rotateMasterKey(ctx, mockOrchestrator, &out)

		require.Error(t, err)
		require.Empty(t, out.String())
		mockOrchestrator.AssertExpectations(t)
	})
}

func TestRunRotateMasterKeyValidation(t *testing.T) {
	os.Clearenv()

	t.Run("missing device id", func(t *testing.T) {
		var out bytes.Buffer
		err := RunRotateMasterKey(context.Background(), IOTuple{Writer: &out})

		require.Error(t, err)
		require.Contains(t, err.Error(), "CLI_DEVICE_ID")
	})

	t.Run("missing keystore url", func(t *testing.T) {
		t.Setenv("CLI_DEVICE_ID", "0191e9b2-0000-7000-8000-000000000000")

		var out bytes.Buffer
		err := RunRotateMasterKey(context.Background(), IOTuple{Writer: &out})

		require.Error(t, err)
		require.Contains(t, err.Error(), "CLI_KEYSTORE_URL")
	})
}
