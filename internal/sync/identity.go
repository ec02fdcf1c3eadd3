package sync

import (
	"fmt"
	"strings"

	"github.com/webilytics/webinar-sync/internal/platform"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

// KeyResolution is the outcome of resolving a remote entity's natural key.
// Stable keys come from a remote identifier; derived keys are composed from
// page position and whatever identity fields were present, and are not
// guaranteed unique across resyncs.
type KeyResolution struct {
	Key        string
	Confidence model.KeyConfidence
}

// ResolveParticipantKey prefers the platform's participant id, then the
// account user id, then the email. Anonymous attendees without any of those
// get a derived key and are flagged low-confidence.
func ResolveParticipantKey(p platform.Participant, position int) KeyResolution {
	switch {
	case p.ID != "":
		return KeyResolution{Key: "id:" + p.ID, Confidence: model.KeyConfidenceStable}
	case p.UserID != "":
		return KeyResolution{Key: "user:" + p.UserID, Confidence: model.KeyConfidenceStable}
	case p.UserEmail != "":
		return KeyResolution{Key: "email:" + strings.ToLower(p.UserEmail), Confidence: model.KeyConfidenceStable}
	default:
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			name = "anonymous"
		}
		return KeyResolution{
			Key:        fmt.Sprintf("derived:%s:%d", name, position),
			Confidence: model.KeyConfidenceDerived,
		}
	}
}
