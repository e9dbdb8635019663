// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package types

import (
	"testing"

	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTypeConstants_Valid(t *testing.T) {
	for _, rt := range RecordTypes() {
		t.Run(string(rt), func(t *testing.T) {
			assert.True(t, rt.Valid(), "record type %q must pass Valid()", rt)
		})
	}
}

func TestRecordType_Valid_RejectsUnknown(t *testing.T) {
	assert.False(t, RecordType("Blueprint").Valid())
	assert.False(t, RecordType("").Valid())
}

func TestParseRecordType(t *testing.T) {
	tests := []struct {
		in   string
		want RecordType
	}{
		{"DesignGoal", RecordTypeDesignGoal},
		{"designgoal", RecordTypeDesignGoal},
		{"design_goal", RecordTypeDesignGoal},
		{" Recommendation ", RecordTypeRecommendation},
		{"furniture_placement", RecordTypeFurniturePlacement},
		{"SCAN_CONTEXT", RecordTypeScanContext},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRecordType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRecordType_Invalid(t *testing.T) {
	_, err := ParseRecordType("moodboard")
	require.Error(t, err)
	assert.True(t, aterr.IsInvalidInput(err))
}

func TestSeverity_Valid(t *testing.T) {
	assert.True(t, SeverityLow.Valid())
	assert.True(t, SeverityMedium.Valid())
	assert.True(t, SeverityHigh.Valid())
	assert.False(t, Severity("critical").Valid())
}
