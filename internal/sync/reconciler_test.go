package sync_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webilytics/webinar-sync/internal/config"
	"github.com/webilytics/webinar-sync/internal/platform"
	st "github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/internal/sync"
)

var _ = Describe("Reconcile", func() {
	It("inserts when no current version exists", func() {
		Expect(sync.Reconcile(nil, "abc")).To(Equal(sync.DecisionInsert))
	})

	It("touches when the checksum is unchanged", func() {
		current := "abc"
		Expect(sync.Reconcile(&current, "abc")).To(Equal(sync.DecisionTouch))
	})

	It("historizes when the checksum changed", func() {
		current := "abc"
		Expect(sync.Reconcile(&current, "def")).To(Equal(sync.DecisionHistorize))
	})
})

var _ = Describe("ResolveParticipantKey", func() {
	It("prefers the participant id", func() {
		res := sync.ResolveParticipantKey(platform.Participant{ID: "p1", UserID: "u1", UserEmail: "a@b.io"}, 0)
		Expect(res.Key).To(Equal("id:p1"))
		Expect(res.Confidence).To(Equal(model.KeyConfidenceStable))
	})

	It("falls back to the user id, then the email", func() {
		res := sync.ResolveParticipantKey(platform.Participant{UserID: "u1", UserEmail: "a@b.io"}, 0)
		Expect(res.Key).To(Equal("user:u1"))

		res = sync.ResolveParticipantKey(platform.Participant{UserEmail: "A@B.io"}, 0)
		Expect(res.Key).To(Equal("email:a@b.io"))
		Expect(res.Confidence).To(Equal(model.KeyConfidenceStable))
	})

	It("derives a low-confidence key for anonymous attendees", func() {
		res := sync.ResolveParticipantKey(platform.Participant{Name: "Guest One"}, 4)
		Expect(res.Key).To(Equal("derived:guest one:4"))
		Expect(res.Confidence).To(Equal(model.KeyConfidenceDerived))

		res = sync.ResolveParticipantKey(platform.Participant{}, 7)
		Expect(res.Key).To(Equal("derived:anonymous:7"))
	})
})

var _ = Describe("checksums", func() {
	join := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)

	base := func() model.Participant {
		return model.Participant{
			Name:            "Ada",
			Email:           "ada@example.com",
			JoinTime:        &join,
			DurationSeconds: 1800,
			EngagementScore: 50,
		}
	}

	It("ignores volatile bookkeeping fields", func() {
		a := base()
		b := base()
		b.LastSyncedAt = time.Now()
		b.DataAvailable = true
		b.IsHistorical = true
		Expect(sync.ParticipantChecksum(a)).To(Equal(sync.ParticipantChecksum(b)))
	})

	It("changes when a tracked field changes", func() {
		a := base()
		b := base()
		b.DurationSeconds = 1900
		Expect(sync.ParticipantChecksum(a)).ToNot(Equal(sync.ParticipantChecksum(b)))
	})

	It("treats email case-insensitively", func() {
		a := base()
		b := base()
		b.Email = "ADA@example.com"
		Expect(sync.ParticipantChecksum(a)).To(Equal(sync.ParticipantChecksum(b)))
	})
})

var _ = Describe("Writer", Ordered, func() {
	var (
		store     st.Store
		writer    *sync.Writer
		ctx       context.Context
		webinarID int64 = 101
	)

	join := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)

	snapshot := func(name string, duration int) model.Participant {
		return sync.MapParticipant(webinarID, 60, platform.Participant{
			ID:        "p1",
			Name:      name,
			UserEmail: "ada@example.com",
			JoinTime:  join,
			Duration:  duration,
		}, 0)
	}

	BeforeAll(func() {
		ctx = context.TODO()
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())

		store = st.NewStore(db)
		Expect(store.InitialMigration()).To(BeNil())

		_, err = store.Webinar().Upsert(ctx, model.Webinar{ID: webinarID, Topic: "quarterly review", Duration: 60})
		Expect(err).To(BeNil())

		writer = sync.NewWriter(store, 10)
	})

	AfterAll(func() {
		store.Close()
	})

	It("inserts a previously unseen participant", func() {
		stats := writer.WriteParticipants(ctx, webinarID, []model.Participant{snapshot("Ada", 1800)})
		Expect(stats.Inserted).To(Equal(1))
		Expect(stats.Failed).To(Equal(0))

		current, err := store.Participant().GetCurrent(ctx, webinarID, "id:p1")
		Expect(err).To(BeNil())
		Expect(current.IsHistorical).To(BeFalse())
		Expect(current.DataAvailable).To(BeTrue())
	})

	It("touches an unchanged participant without creating rows", func() {
		stats := writer.WriteParticipants(ctx, webinarID, []model.Participant{snapshot("Ada", 1800)})
		Expect(stats.Touched).To(Equal(1))
		Expect(stats.Inserted).To(Equal(0))

		versions, err := store.Participant().ListVersions(ctx, webinarID, "id:p1")
		Expect(err).To(BeNil())
		Expect(versions).To(HaveLen(1))
	})

	It("historizes on change, keeping exactly one current row", func() {
		stats := writer.WriteParticipants(ctx, webinarID, []model.Participant{snapshot("Ada", 2400)})
		Expect(stats.Historized).To(Equal(1))
		Expect(stats.Inserted).To(Equal(1))

		versions, err := store.Participant().ListVersions(ctx, webinarID, "id:p1")
		Expect(err).To(BeNil())
		Expect(versions).To(HaveLen(2))

		currentCount := 0
		for _, v := range versions {
			if !v.IsHistorical {
				currentCount++
				Expect(v.DurationSeconds).To(Equal(2400))
			} else {
				Expect(v.DataAvailable).To(BeFalse())
			}
		}
		Expect(currentCount).To(Equal(1))
	})

	It("keeps one current row across a churning checksum sequence", func() {
		// A, A, B, B, C on a fresh key: three versions total, one current.
		for _, duration := range []int{600, 600, 1200, 1200, 1800} {
			row := sync.MapParticipant(webinarID, 60, platform.Participant{
				ID:        "p2",
				Name:      "Grace",
				UserEmail: "grace@example.com",
				JoinTime:  join,
				Duration:  duration,
			}, 0)
			writer.WriteParticipants(ctx, webinarID, []model.Participant{row})
		}

		versions, err := store.Participant().ListVersions(ctx, webinarID, "id:p2")
		Expect(err).To(BeNil())
		Expect(versions).To(HaveLen(3))

		current, err := store.Participant().GetCurrent(ctx, webinarID, "id:p2")
		Expect(err).To(BeNil())
		Expect(current.DurationSeconds).To(Equal(1800))
	})
})
