package sync_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/webilytics/webinar-sync/internal/auth"
	"github.com/webilytics/webinar-sync/internal/config"
	"github.com/webilytics/webinar-sync/internal/platform"
	st "github.com/webilytics/webinar-sync/internal/store"
	"github.com/webilytics/webinar-sync/internal/store/model"
	"github.com/webilytics/webinar-sync/internal/sync"
)

// emptyPlatform answers every list endpoint with zero items so a resync
// touches each webinar without writing snapshots.
func emptyPlatform() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/instances"):
			fmt.Fprint(w, `{"webinars":[]}`)
		case strings.HasSuffix(r.URL.Path, "/participants"):
			fmt.Fprint(w, `{"participants":[]}`)
		case strings.HasSuffix(r.URL.Path, "/registrants"):
			fmt.Fprint(w, `{"registrants":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

var _ = Describe("mass resync", func() {
	var (
		ctx    context.Context
		server *httptest.Server
		store  st.Store
		engine *sync.Engine
	)

	seedWebinars := func(n int) {
		for i := 1; i <= n; i++ {
			_, err := store.Webinar().Upsert(ctx, model.Webinar{ID: int64(i), Topic: fmt.Sprintf("webinar %d", i), Duration: 60})
			Expect(err).To(BeNil())
		}
	}

	BeforeEach(func() {
		ctx = context.TODO()
		server = emptyPlatform()

		var err error
		store, engine, err = newTestEngine(server.URL)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		server.Close()
		store.Close()
	})

	It("freezes the item list into deterministic chunks", func() {
		seedWebinars(12)

		job, err := engine.StartMassResync(ctx, nil)
		Expect(err).To(BeNil())
		Expect(job.TotalItems).To(Equal(12))
		Expect(job.ChunkSize).To(Equal(5))
		Expect(job.TotalChunks).To(Equal(3))
		Expect(job.Status).To(Equal(model.JobStatusPending))

		Expect(job.Chunk(0)).To(HaveLen(5))
		Expect(job.Chunk(1)).To(HaveLen(5))
		Expect(job.Chunk(2)).To(HaveLen(2))
		Expect(job.Chunk(3)).To(BeEmpty())
	})

	It("processes chunks to completion with monotonic progress", func() {
		seedWebinars(12)

		job, err := engine.StartMassResync(ctx, nil)
		Expect(err).To(BeNil())

		res, err := engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())
		Expect(res.ProcessedItems).To(Equal(5))
		Expect(res.SuccessfulItems).To(Equal(5))
		Expect(res.CurrentChunk).To(Equal(1))
		Expect(res.IsComplete).To(BeFalse())
		Expect(res.ProgressPercentage).To(Equal(41))

		res, err = engine.RunChunk(ctx, job.ID, 1)
		Expect(err).To(BeNil())
		Expect(res.ProcessedItems).To(Equal(10))

		res, err = engine.RunChunk(ctx, job.ID, 2)
		Expect(err).To(BeNil())
		Expect(res.ProcessedItems).To(Equal(12))
		Expect(res.SuccessfulItems).To(Equal(12))
		Expect(res.IsComplete).To(BeTrue())
		Expect(res.ProgressPercentage).To(Equal(100))

		updated, err := store.MassResync().Get(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(updated.Status).To(Equal(model.JobStatusCompleted))
		Expect(updated.CompletedAt).ToNot(BeNil())
	})

	It("tolerates replaying an already processed chunk", func() {
		seedWebinars(7)

		job, err := engine.StartMassResync(ctx, nil)
		Expect(err).To(BeNil())
		Expect(job.TotalChunks).To(Equal(2))

		_, err = engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())

		res, err := engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())
		Expect(res.ProcessedItems).To(Equal(5))
		Expect(res.SuccessfulItems).To(Equal(5))
		Expect(res.CurrentChunk).To(Equal(1))
	})

	It("splits 23 items into five chunks and completes on the last one", func() {
		seedWebinars(23)

		job, err := engine.StartMassResync(ctx, nil)
		Expect(err).To(BeNil())
		Expect(job.TotalItems).To(Equal(23))
		Expect(job.TotalChunks).To(Equal(5))
		Expect(job.Chunk(3)).To(HaveLen(5))
		Expect(job.Chunk(4)).To(HaveLen(3))

		for i := 0; i < 4; i++ {
			res, rerr := engine.RunChunk(ctx, job.ID, i)
			Expect(rerr).To(BeNil())
			Expect(res.ProcessedItems).To(Equal((i + 1) * 5))
			Expect(res.IsComplete).To(BeFalse())
		}

		res, err := engine.RunChunk(ctx, job.ID, 4)
		Expect(err).To(BeNil())
		Expect(res.ProcessedItems).To(Equal(23))
		Expect(res.SuccessfulItems).To(Equal(23))
		Expect(res.IsComplete).To(BeTrue())
		Expect(res.ProgressPercentage).To(Equal(100))
	})

	It("does not duplicate error entries when a failing chunk is replayed", func() {
		seedWebinars(2)
		// Webinar 3 is in the item list but not in the store: its resync fails.
		job, err := engine.StartMassResync(ctx, []int64{1, 2, 3})
		Expect(err).To(BeNil())

		_, err = engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())

		res, err := engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())
		Expect(res.FailedItems).To(Equal(1))

		updated, err := store.MassResync().Get(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(updated.Errors).To(HaveLen(1))
		Expect(updated.Errors[0].Source).To(Equal("resync:3"))
	})

	It("rejects a chunk index past the end of the job", func() {
		seedWebinars(3)

		job, err := engine.StartMassResync(ctx, nil)
		Expect(err).To(BeNil())

		_, err = engine.RunChunk(ctx, job.ID, 5)
		Expect(err).ToNot(BeNil())
	})

	It("counts a failing item without sinking its chunk", func() {
		seedWebinars(2)
		// Webinar 3 is in the item list but not in the store: its resync fails.
		job, err := engine.StartMassResync(ctx, []int64{1, 2, 3})
		Expect(err).To(BeNil())

		res, err := engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())
		Expect(res.ProcessedItems).To(Equal(3))
		Expect(res.SuccessfulItems).To(Equal(2))
		Expect(res.FailedItems).To(Equal(1))
		Expect(res.IsComplete).To(BeTrue())

		updated, err := store.MassResync().Get(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(updated.Errors).To(HaveLen(1))
		Expect(updated.Errors[0].Source).To(Equal("resync:3"))
	})
})

var _ = Describe("per-item timeout", func() {
	It("fails an item that exceeds the timeout and keeps going", func() {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			fmt.Fprint(w, `{"webinars":[]}`)
		}))
		defer slow.Close()

		cfg := config.NewDefault()
		cfg.Platform.BaseUrl = slow.URL
		cfg.Sync.BatchDelay = 0
		cfg.Sync.RequestsPerSec = 1000
		cfg.Sync.ItemTimeout = 50 * time.Millisecond

		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		store := st.NewStore(db)
		defer store.Close()
		Expect(store.InitialMigration()).To(BeNil())

		tokens := auth.StaticTokenProvider("test-token")
		engine := sync.NewEngine(cfg, store, platform.NewClient(cfg, tokens), tokens)

		ctx := context.TODO()
		_, err = store.Webinar().Upsert(ctx, model.Webinar{ID: 1, Topic: "slow", Duration: 60})
		Expect(err).To(BeNil())

		job, err := engine.StartMassResync(ctx, []int64{1})
		Expect(err).To(BeNil())

		res, err := engine.RunChunk(ctx, job.ID, 0)
		Expect(err).To(BeNil())
		Expect(res.FailedItems).To(Equal(1))
		Expect(res.SuccessfulItems).To(Equal(0))
		Expect(res.IsComplete).To(BeTrue())
	})
})
