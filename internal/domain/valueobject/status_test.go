package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

func TestReportStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from ReportStatus
		to   ReportStatus
		want bool
	}{
		{ReportStatusPending, ReportStatusAccepted, true},
		{ReportStatusAccepted, ReportStatusInProgress, true},
		{ReportStatusInProgress, ReportStatusCompleted, true},
		{ReportStatusPending, ReportStatusInProgress, false},
		{ReportStatusPending, ReportStatusCompleted, false},
		{ReportStatusAccepted, ReportStatusPending, false},
		{ReportStatusCompleted, ReportStatusPending, false},
		{ReportStatusCompleted, ReportStatusCompleted, false},
		{ReportStatus("cancelled"), ReportStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewUrgency(t *testing.T) {
	for _, v := range []string{"urgent", "very urgent", "not really urgent"} {
		_, err := NewUrgency(v)
		assert.NoError(t, err, v)
	}

	_, err := NewUrgency("flexible")
	assert.True(t, apperror.IsValidation(err))
}

func TestUserType_GeocodeRegion(t *testing.T) {
	assert.Equal(t, "UK", UserTypeUser.GeocodeRegion())
	assert.Equal(t, "US", UserTypeSpecialist.GeocodeRegion())
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(150, "")
	assert.NoError(t, err)
	assert.Equal(t, DefaultCurrency, m.Currency)

	_, err = NewMoney(-1, "GBP")
	assert.True(t, apperror.IsValidation(err))
}
