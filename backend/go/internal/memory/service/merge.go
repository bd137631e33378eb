package service

import (
	"sort"

	"couplecoach/backend/go/internal/models"
)

// MergeSessions concatenates the user's and the couple's session lists,
// keeps the first occurrence of every record ID (user list wins) and orders
// the result newest first. Records with equal timestamps keep their relative
// order. The inputs are not modified.
func MergeSessions(userSessions, coupleSessions []models.SessionRecord) []models.SessionRecord {
	merged := make([]models.SessionRecord, 0, len(userSessions)+len(coupleSessions))
	seen := make(map[string]struct{}, cap(merged))

	for _, list := range [][]models.SessionRecord{userSessions, coupleSessions} {
		for _, r := range list {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}
