package service

import (
	"fmt"
	"time"

	"couplecoach/backend/go/internal/models"
)

var baseTime = time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func soloSession(id, userID string, createdAt time.Time, themes ...string) models.SessionRecord {
	return models.SessionRecord{
		ID:        id,
		Type:      models.SessionSolo,
		UserID:    userID,
		Analysis:  strPtr("analysis of " + id),
		Themes:    themes,
		CreatedAt: createdAt,
	}
}

func coupleSession(id, userID, coupleID string, createdAt time.Time, themes ...string) models.SessionRecord {
	r := soloSession(id, userID, createdAt, themes...)
	r.Type = models.SessionCouple
	r.CoupleID = strPtr(coupleID)
	return r
}

// dailySessions returns n solo sessions for userID, one per day going back
// from baseTime; index 0 is the newest.
func dailySessions(userID string, n int) []models.SessionRecord {
	out := make([]models.SessionRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, soloSession(fmt.Sprintf("s%02d", i), userID, baseTime.AddDate(0, 0, -i)))
	}
	return out
}

func ids(records []models.SessionRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
