package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/webilytics/webinar-sync/internal/platform"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func MapWebinar(w platform.Webinar) model.Webinar {
	return model.Webinar{
		ID:        w.ID,
		UUID:      w.UUID,
		Topic:     w.Topic,
		HostID:    w.HostID,
		HostEmail: w.HostEmail,
		StartTime: timePtr(w.StartTime),
		Duration:  w.Duration,
		Timezone:  w.Timezone,
		Agenda:    w.Agenda,
	}
}

// MapParticipant builds a snapshot row from the wire type. The engagement
// score is the attended share of the webinar's scheduled duration, 0-100.
// Position disambiguates derived keys within one fetched page sequence.
func MapParticipant(webinarID int64, webinarDurationMin int, p platform.Participant, position int) model.Participant {
	res := ResolveParticipantKey(p, position)

	score := 0.0
	if webinarDurationMin > 0 {
		score = float64(p.Duration) / float64(webinarDurationMin*60) * 100
		if score > 100 {
			score = 100
		}
	}

	row := model.Participant{
		WebinarID:       webinarID,
		ParticipantKey:  res.Key,
		KeyConfidence:   res.Confidence,
		RemoteID:        p.ID,
		UserID:          p.UserID,
		Name:            p.Name,
		Email:           strings.ToLower(p.UserEmail),
		JoinTime:        timePtr(p.JoinTime),
		LeaveTime:       timePtr(p.LeaveTime),
		DurationSeconds: p.Duration,
		EngagementScore: score,
		DataAvailable:   true,
	}
	row.Checksum = ParticipantChecksum(row)
	return row
}

func MapRegistrant(webinarID int64, r platform.Registrant) model.Registrant {
	row := model.Registrant{
		WebinarID:     webinarID,
		Email:         strings.ToLower(r.Email),
		RemoteID:      r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Status:        r.Status,
		RegisteredAt:  timePtr(r.CreateTime),
		DataAvailable: true,
	}
	row.Checksum = RegistrantChecksum(row)
	return row
}

func MapRecording(webinarID int64, instanceUUID string, f platform.RecordingFile) model.Recording {
	return model.Recording{
		ID:             f.ID,
		WebinarID:      webinarID,
		InstanceUUID:   instanceUUID,
		FileType:       f.FileType,
		RecordingType:  f.RecordingType,
		FileSize:       f.FileSize,
		RecordingStart: timePtr(f.RecordingStart),
		RecordingEnd:   timePtr(f.RecordingEnd),
		DownloadURL:    f.DownloadURL,
	}
}

// MapInteraction derives a deterministic primary key from the natural key so
// repeated syncs upsert instead of duplicating.
func MapInteraction(webinarID int64, instanceUUID, kind, name, email string, d platform.QuestionDetail) model.Interaction {
	natural := fmt.Sprintf("%d|%s|%s|%s|%s", webinarID, instanceUUID, kind, strings.ToLower(email), d.Question)
	sum := sha256.Sum256([]byte(natural))

	return model.Interaction{
		ID:           hex.EncodeToString(sum[:16]),
		WebinarID:    webinarID,
		InstanceUUID: instanceUUID,
		Kind:         kind,
		Email:        strings.ToLower(email),
		Name:         name,
		Question:     d.Question,
		Answer:       d.Answer,
	}
}
