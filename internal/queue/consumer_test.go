package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() ReservationEvent {
	return ReservationEvent{
		Event:           EventReservationCreated,
		ReservationID:   7,
		StationID:       3,
		StationName:     "Riverside Hub",
		UserID:          42,
		ChargerType:     "AC Level 2",
		ETA:             "2026-08-28T15:00:00Z",
		ReservationFee:  10,
		AvailablePoints: 5,
		OccurredAt:      "2026-08-28T14:00:00Z",
	}
}

func TestHandleMessageAppendsLogLine(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "activity", "reservations.log")
	t.Setenv("RESERVATION_LOG_FILE", fpath)

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)

	require.NoError(t, handleMessage(body))
	require.NoError(t, handleMessage(body)) // appends, does not truncate

	data, err := os.ReadFile(fpath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "reservation.created")
	assert.Contains(t, content, "Riverside Hub")
	assert.Contains(t, content, "reservation_id=7")
	assert.Equal(t, 2, countLines(content))
}

func TestLogFilePath(t *testing.T) {
	t.Setenv("RESERVATION_LOG_FILE", "")
	assert.Equal(t, filepath.Join("logs", "reservations.log"), logFilePath())

	t.Setenv("RESERVATION_LOG_FILE", "/var/log/ev/reservations.log")
	assert.Equal(t, "/var/log/ev/reservations.log", logFilePath())
}

func TestHandleMessageRejectsBadJSON(t *testing.T) {
	assert.Error(t, handleMessage([]byte("not json")))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
