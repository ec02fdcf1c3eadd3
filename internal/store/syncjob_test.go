package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/webilytics/webinar-sync/internal/config"
	st "github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
)

var _ = Describe("sync job store", Ordered, func() {
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
		gormdb.Exec("DELETE from sync_jobs;")
	})

	Context("create and get", func() {
		It("assigns an id when missing", func() {
			job, err := s.SyncJob().Create(context.TODO(), model.SyncJob{
				JobType: model.JobTypeDiscovery,
				Status:  model.JobStatusPending,
			})
			Expect(err).To(BeNil())
			Expect(job.ID).ToNot(Equal(uuid.Nil))

			fetched, err := s.SyncJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(fetched.JobType).To(Equal(model.JobTypeDiscovery))
			Expect(fetched.Status).To(Equal(model.JobStatusPending))
		})

		It("returns ErrRecordNotFound for an unknown id", func() {
			_, err := s.SyncJob().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("update", func() {
		It("bumps the version on every snapshot", func() {
			job, err := s.SyncJob().Create(context.TODO(), model.SyncJob{
				JobType: model.JobTypeComprehensive,
				Status:  model.JobStatusPending,
				Stages:  model.StageList{{ID: "validation", Status: model.StageStatusPending}},
			})
			Expect(err).To(BeNil())

			job.Status = model.JobStatusRunning
			updated, err := s.SyncJob().Update(context.TODO(), *job)
			Expect(err).To(BeNil())
			Expect(updated.Version).To(Equal(1))

			updated.Stages[0].Status = model.StageStatusRunning
			updated, err = s.SyncJob().Update(context.TODO(), *updated)
			Expect(err).To(BeNil())
			Expect(updated.Version).To(Equal(2))

			fetched, err := s.SyncJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(fetched.Version).To(Equal(2))
			Expect(fetched.Stages).To(HaveLen(1))
			Expect(fetched.Stages[0].Status).To(Equal(model.StageStatusRunning))
		})

		It("fails on a missing job", func() {
			_, err := s.SyncJob().Update(context.TODO(), model.SyncJob{ID: uuid.New()})
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("filters by status and job type", func() {
			for _, j := range []model.SyncJob{
				{JobType: model.JobTypeDiscovery, Status: model.JobStatusCompleted},
				{JobType: model.JobTypeComprehensive, Status: model.JobStatusRunning},
				{JobType: model.JobTypeComprehensive, Status: model.JobStatusCompleted},
			} {
				_, err := s.SyncJob().Create(context.TODO(), j)
				Expect(err).To(BeNil())
			}

			jobs, err := s.SyncJob().List(context.TODO(), st.NewSyncJobQueryFilter().ByStatus(model.JobStatusCompleted))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))

			jobs, err = s.SyncJob().List(context.TODO(), st.NewSyncJobQueryFilter().ByJobType(model.JobTypeComprehensive).ByStatus(model.JobStatusRunning))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))

			jobs, err = s.SyncJob().List(context.TODO(), st.NewSyncJobQueryFilter().WithLimit(1))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
		})
	})

	Context("count by status", func() {
		It("groups jobs per status", func() {
			for _, status := range []string{
				model.JobStatusPending, model.JobStatusPending, model.JobStatusFailed,
			} {
				_, err := s.SyncJob().Create(context.TODO(), model.SyncJob{JobType: model.JobTypeDiscovery, Status: status})
				Expect(err).To(BeNil())
			}

			counts, err := s.SyncJob().CountByStatus(context.TODO())
			Expect(err).To(BeNil())
			Expect(counts[model.JobStatusPending]).To(Equal(2))
			Expect(counts[model.JobStatusFailed]).To(Equal(1))
		})
	})
})
