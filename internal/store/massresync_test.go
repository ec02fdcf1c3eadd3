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

var _ = Describe("mass resync store", Ordered, func() {
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
		gormdb.Exec("DELETE from mass_resync_jobs;")
	})

	It("round-trips the frozen item list", func() {
		job, err := s.MassResync().Create(context.TODO(), model.MassResyncJob{
			Status:      model.JobStatusPending,
			TotalItems:  3,
			TotalChunks: 2,
			ChunkSize:   2,
			ItemList:    model.StringList{"101", "102", "103"},
		})
		Expect(err).To(BeNil())
		Expect(job.ID).ToNot(Equal(uuid.Nil))

		fetched, err := s.MassResync().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(fetched.ItemList).To(Equal(model.StringList{"101", "102", "103"}))
		Expect(fetched.Chunk(0)).To(Equal([]string{"101", "102"}))
		Expect(fetched.Chunk(1)).To(Equal([]string{"103"}))
		Expect(fetched.Chunk(2)).To(BeNil())
	})

	It("persists chunk progress", func() {
		job, err := s.MassResync().Create(context.TODO(), model.MassResyncJob{
			Status:      model.JobStatusRunning,
			TotalItems:  4,
			TotalChunks: 2,
			ChunkSize:   2,
			ItemList:    model.StringList{"1", "2", "3", "4"},
		})
		Expect(err).To(BeNil())

		job.ProcessedItems = 2
		job.SuccessfulItems = 2
		job.CurrentChunk = 1
		_, err = s.MassResync().Update(context.TODO(), *job)
		Expect(err).To(BeNil())

		fetched, err := s.MassResync().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(fetched.ProcessedItems).To(Equal(2))
		Expect(fetched.CurrentChunk).To(Equal(1))
		Expect(fetched.IsComplete()).To(BeFalse())
		Expect(fetched.ProgressPercentage()).To(Equal(50))
	})

	It("records errors and completion", func() {
		now := time.Now().UTC()
		job, err := s.MassResync().Create(context.TODO(), model.MassResyncJob{
			Status:      model.JobStatusRunning,
			TotalItems:  1,
			TotalChunks: 1,
			ChunkSize:   5,
			ItemList:    model.StringList{"7"},
		})
		Expect(err).To(BeNil())

		job.ProcessedItems = 1
		job.FailedItems = 1
		job.Status = model.JobStatusCompleted
		job.CompletedAt = &now
		job.Errors = model.ErrorList{{Source: "resync:7", Message: "webinar not found", OccurredAt: now}}
		_, err = s.MassResync().Update(context.TODO(), *job)
		Expect(err).To(BeNil())

		fetched, err := s.MassResync().Get(context.TODO(), job.ID)
		Expect(err).To(BeNil())
		Expect(fetched.IsComplete()).To(BeTrue())
		Expect(fetched.CompletedAt).ToNot(BeNil())
		Expect(fetched.Errors).To(HaveLen(1))
		Expect(fetched.Errors[0].Source).To(Equal("resync:7"))
	})

	It("returns ErrRecordNotFound on unknown ids", func() {
		_, err := s.MassResync().Get(context.TODO(), uuid.New())
		Expect(err).To(MatchError(st.ErrRecordNotFound))

		_, err = s.MassResync().Update(context.TODO(), model.MassResyncJob{ID: uuid.New()})
		Expect(err).To(MatchError(st.ErrRecordNotFound))
	})
})
