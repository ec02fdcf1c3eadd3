package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/webilytics/webinar-sync/internal/config"
	st "github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

var _ = Describe("webinar store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

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
		gormdb.Exec("DELETE from webinars;")
	})

	Context("upsert", func() {
		It("inserts a new webinar", func() {
			webinar, err := s.Webinar().Upsert(context.TODO(), model.Webinar{
				ID:    501,
				UUID:  "uuid-501",
				Topic: "Launch day",
			})
			Expect(err).To(BeNil())
			Expect(webinar.ID).To(BeEquivalentTo(501))

			fetched, err := s.Webinar().Get(context.TODO(), 501)
			Expect(err).To(BeNil())
			Expect(fetched.Topic).To(Equal("Launch day"))
		})

		It("refreshes descriptive fields but keeps aggregates", func() {
			_, err := s.Webinar().Upsert(context.TODO(), model.Webinar{ID: 501, Topic: "Launch day"})
			Expect(err).To(BeNil())

			Expect(s.Webinar().UpdateAggregates(context.TODO(), 501, 42, 80, 31.5, 0.7)).To(BeNil())

			_, err = s.Webinar().Upsert(context.TODO(), model.Webinar{ID: 501, Topic: "Launch day, take two"})
			Expect(err).To(BeNil())

			fetched, err := s.Webinar().Get(context.TODO(), 501)
			Expect(err).To(BeNil())
			Expect(fetched.Topic).To(Equal("Launch day, take two"))
			Expect(fetched.AttendeeCount).To(Equal(42))
			Expect(fetched.RegistrantCount).To(Equal(80))
		})
	})

	Context("list", func() {
		It("lists ids in ascending order", func() {
			for _, id := range []int64{503, 501, 502} {
				_, err := s.Webinar().Upsert(context.TODO(), model.Webinar{ID: id})
				Expect(err).To(BeNil())
			}

			ids, err := s.Webinar().ListIDs(context.TODO())
			Expect(err).To(BeNil())
			Expect(ids).To(Equal([]int64{501, 502, 503}))
		})

		It("returns ErrRecordNotFound for an unknown webinar", func() {
			_, err := s.Webinar().Get(context.TODO(), 999)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("touch synced", func() {
		It("records the last sync time", func() {
			_, err := s.Webinar().Upsert(context.TODO(), model.Webinar{ID: 501})
			Expect(err).To(BeNil())

			at := time.Now().UTC()
			Expect(s.Webinar().TouchSynced(context.TODO(), 501, at)).To(BeNil())

			fetched, err := s.Webinar().Get(context.TODO(), 501)
			Expect(err).To(BeNil())
			Expect(fetched.LastSyncedAt).ToNot(BeNil())
		})
	})

	Context("aggregates", func() {
		It("fails on an unknown webinar", func() {
			err := s.Webinar().UpdateAggregates(context.TODO(), 999, 1, 1, 1, 1)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})
})
