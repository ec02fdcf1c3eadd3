package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/webilytics/webinar-sync/internal/store/model"
)

// The checksum field set is declared explicitly per entity kind. Volatile
// bookkeeping (last_synced_at, data_available, row timestamps) is excluded so
// a re-observed identical record hashes identically across syncs.

func checksumOf(fields ...string) string {
	h := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(h[:])
}

func checksumTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ParticipantChecksum hashes the fields that matter for attendee change
// detection: name, email, join/leave time, duration and the derived
// engagement score.
func ParticipantChecksum(p model.Participant) string {
	return checksumOf(
		p.Name,
		strings.ToLower(p.Email),
		checksumTime(p.JoinTime),
		checksumTime(p.LeaveTime),
		strconv.Itoa(p.DurationSeconds),
		strconv.FormatFloat(p.EngagementScore, 'f', 2, 64),
	)
}

// RegistrantChecksum hashes the fields that matter for registration change
// detection: identity, approval status and registration time.
func RegistrantChecksum(r model.Registrant) string {
	return checksumOf(
		r.FirstName,
		r.LastName,
		strings.ToLower(r.Email),
		r.Status,
		checksumTime(r.RegisteredAt),
	)
}
