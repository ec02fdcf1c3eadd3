package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/webilytics/webinar-sync/internal/config"
	st "github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

var _ = Describe("participant store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	newParticipant := func(key string, duration int) model.Participant {
		return model.Participant{
			WebinarID:       401,
			ParticipantKey:  key,
			KeyConfidence:   model.KeyConfidenceStable,
			Name:            "Ada Lovelace",
			Email:           "ada@example.com",
			DurationSeconds: duration,
			Checksum:        "cs",
			DataAvailable:   true,
			LastSyncedAt:    time.Now().UTC(),
		}
	}

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from participants;")
	})

	Context("snapshot ledger", func() {
		It("keeps one current row per key", func() {
			created, err := s.Participant().Create(context.TODO(), newParticipant("id:p1", 600))
			Expect(err).To(BeNil())
			Expect(created.ID).ToNot(Equal(uuid.Nil))

			current, err := s.Participant().GetCurrent(context.TODO(), 401, "id:p1")
			Expect(err).To(BeNil())
			Expect(current.DurationSeconds).To(Equal(600))
			Expect(current.IsHistorical).To(BeFalse())
		})

		It("historize retires every version of the key", func() {
			_, err := s.Participant().Create(context.TODO(), newParticipant("id:p1", 600))
			Expect(err).To(BeNil())

			Expect(s.Participant().Historize(context.TODO(), 401, "id:p1")).To(BeNil())

			_, err = s.Participant().GetCurrent(context.TODO(), 401, "id:p1")
			Expect(err).To(MatchError(st.ErrRecordNotFound))

			next := newParticipant("id:p1", 1200)
			_, err = s.Participant().Create(context.TODO(), next)
			Expect(err).To(BeNil())

			versions, err := s.Participant().ListVersions(context.TODO(), 401, "id:p1")
			Expect(err).To(BeNil())
			Expect(versions).To(HaveLen(2))
			Expect(versions[0].IsHistorical).To(BeTrue())
			Expect(versions[0].DataAvailable).To(BeFalse())
			Expect(versions[1].IsHistorical).To(BeFalse())
		})

		It("touch refreshes the sync timestamp and availability", func() {
			p := newParticipant("id:p1", 600)
			p.DataAvailable = false
			created, err := s.Participant().Create(context.TODO(), p)
			Expect(err).To(BeNil())

			at := time.Now().UTC().Add(time.Hour)
			Expect(s.Participant().Touch(context.TODO(), created.ID, at)).To(BeNil())

			current, err := s.Participant().GetCurrent(context.TODO(), 401, "id:p1")
			Expect(err).To(BeNil())
			Expect(current.DataAvailable).To(BeTrue())
		})

		It("touch fails on an unknown row", func() {
			err := s.Participant().Touch(context.TODO(), uuid.New(), time.Now())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("availability sweep", func() {
		It("flags stale current rows without deleting them", func() {
			stale := newParticipant("id:stale", 600)
			stale.LastSyncedAt = time.Now().UTC().Add(-48 * time.Hour)
			_, err := s.Participant().Create(context.TODO(), stale)
			Expect(err).To(BeNil())

			fresh := newParticipant("id:fresh", 600)
			_, err = s.Participant().Create(context.TODO(), fresh)
			Expect(err).To(BeNil())

			flagged, err := s.Participant().MarkUnavailableBefore(context.TODO(), 401, time.Now().UTC().Add(-time.Hour))
			Expect(err).To(BeNil())
			Expect(flagged).To(BeEquivalentTo(1))

			count, err := s.Participant().CountCurrent(context.TODO(), 401)
			Expect(err).To(BeNil())
			Expect(count).To(BeEquivalentTo(2))

			row, err := s.Participant().GetCurrent(context.TODO(), 401, "id:stale")
			Expect(err).To(BeNil())
			Expect(row.DataAvailable).To(BeFalse())
		})
	})

	Context("aggregates", func() {
		It("averages only current rows", func() {
			_, err := s.Participant().Create(context.TODO(), newParticipant("id:a", 600))
			Expect(err).To(BeNil())
			_, err = s.Participant().Create(context.TODO(), newParticipant("id:b", 1200))
			Expect(err).To(BeNil())

			retired := newParticipant("id:c", 9000)
			retired.IsHistorical = true
			_, err = s.Participant().Create(context.TODO(), retired)
			Expect(err).To(BeNil())

			avg, err := s.Participant().AverageCurrentDuration(context.TODO(), 401)
			Expect(err).To(BeNil())
			Expect(avg).To(BeNumerically("==", 900))
		})

		It("returns zero for an empty webinar", func() {
			avg, err := s.Participant().AverageCurrentDuration(context.TODO(), 999)
			Expect(err).To(BeNil())
			Expect(avg).To(BeZero())
		})
	})

	Context("derived keys", func() {
		It("lists only current derived rows", func() {
			derived := newParticipant("derived:guest:3", 600)
			derived.KeyConfidence = model.KeyConfidenceDerived
			_, err := s.Participant().Create(context.TODO(), derived)
			Expect(err).To(BeNil())

			_, err = s.Participant().Create(context.TODO(), newParticipant("id:p1", 600))
			Expect(err).To(BeNil())

			rows, err := s.Participant().ListDerivedKeys(context.TODO(), 401)
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].ParticipantKey).To(Equal("derived:guest:3"))
		})
	})

	Context("batch insert", func() {
		It("assigns ids to every row", func() {
			batch := []model.Participant{
				newParticipant("id:a", 600),
				newParticipant("id:b", 1200),
			}
			Expect(s.Participant().CreateBatch(context.TODO(), batch)).To(BeNil())

			count, err := s.Participant().CountCurrent(context.TODO(), 401)
			Expect(err).To(BeNil())
			Expect(count).To(BeEquivalentTo(2))
		})

		It("accepts an empty batch", func() {
			Expect(s.Participant().CreateBatch(context.TODO(), nil)).To(BeNil())
		})
	})
})
