package handlers

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbot-server/internal/models"
)

func TestPickSlot(t *testing.T) {
	withSlots := models.Doctor{Name: "Dr. A", Slots: models.SlotList{"9:00 AM", "11:00 AM"}}
	noSlots := models.Doctor{Name: "Dr. B"}

	tests := []struct {
		name    string
		doc     models.Doctor
		want    string
		request string
		wantErr bool
	}{
		{"first slot by default", withSlots, "9:00 AM", "", false},
		{"requested slot", withSlots, "11:00 AM", " 11:00 AM ", false},
		{"unknown slot", withSlots, "", "3:00 PM", true},
		{"any time when no slots", noSlots, AnyTimeSlot, "", false},
		{"any time requested", noSlots, AnyTimeSlot, AnyTimeSlot, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickSlot(tt.doc, tt.request)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "9:00 AM, 11:00 AM")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDays(t *testing.T) {
	days, err := parseDays(" 7 ", 1)
	require.NoError(t, err)
	assert.Equal(t, 7, days)

	days, err = parseDays("0", 0)
	require.NoError(t, err)
	assert.Zero(t, days)

	days, err = parseDays(strconv.Itoa(maxDays), 1)
	require.NoError(t, err)
	assert.Positive(t, time.Duration(days)*day)

	for _, raw := range []string{"", "0", "-3", "week", "213504", strconv.Itoa(maxDays + 1), "99999999999999999999"} {
		_, err := parseDays(raw, 1)
		assert.Error(t, err, raw)
	}
}

func TestHasPatient(t *testing.T) {
	rows := []models.Appointment{{Patient: "ann"}, {Patient: "bob"}}
	assert.True(t, hasPatient(rows, "bob"))
	assert.False(t, hasPatient(rows, "carl"))
	assert.False(t, hasPatient(nil, "ann"))
}
