package version

import (
	"testing"

	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		robotVersion  string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{
			name:          "exact match",
			robotVersion:  "1.2.0",
			configVersion: "1.2.0",
		},
		{
			name:          "older config minor",
			robotVersion:  "v1.4.2",
			configVersion: "1.2",
		},
		{
			name:          "config patch differs",
			robotVersion:  "1.2.0",
			configVersion: "1.2.7",
		},
		{
			name:          "empty config version",
			robotVersion:  "1.2.0",
			configVersion: "",
		},
		{
			name:          "development build",
			robotVersion:  "main",
			configVersion: "9.9.9",
		},
		{
			name:          "newer config minor",
			robotVersion:  "1.2.0",
			configVersion: "1.3",
			expectError:   true,
			errorContains: "config requires 1.3.x",
		},
		{
			name:          "major mismatch",
			robotVersion:  "2.0.0",
			configVersion: "1.9.0",
			expectError:   true,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid config version",
			robotVersion:  "1.0.0",
			configVersion: "latest",
			expectError:   true,
			errorContains: "invalid config version",
		},
		{
			name:          "invalid robot version",
			robotVersion:  "dev-build",
			configVersion: "1.0.0",
			expectError:   true,
			errorContains: "invalid robot version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.robotVersion, tt.configVersion)
			if !tt.expectError {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
