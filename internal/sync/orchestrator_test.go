package sync_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
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

// newTestEngine wires an engine against an in-memory store and a fake
// platform server.
func newTestEngine(serverURL string) (st.Store, *sync.Engine, error) {
	cfg := config.NewDefault()
	cfg.Platform.BaseUrl = serverURL
	cfg.Sync.BatchDelay = 0
	cfg.Sync.RequestsPerSec = 1000

	db, err := st.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := st.NewStore(db)
	if err := store.InitialMigration(); err != nil {
		return nil, nil, err
	}

	tokens := auth.StaticTokenProvider("test-token")
	client := platform.NewClient(cfg, tokens)
	return store, sync.NewEngine(cfg, store, client, tokens), nil
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

var _ = Describe("OverallProgress", func() {
	It("folds stage fractions into a monotonic percentage", func() {
		stages := model.StageList{
			{ID: "a", Status: model.StageStatusCompleted, Progress: 100},
			{ID: "b", Status: model.StageStatusRunning, Progress: 50},
			{ID: "c", Status: model.StageStatusPending},
			{ID: "d", Status: model.StageStatusPending},
		}
		Expect(sync.OverallProgress(stages)).To(Equal(37))

		stages[1].Progress = 100
		Expect(sync.OverallProgress(stages)).To(Equal(50))
	})

	It("is zero for an empty stage list", func() {
		Expect(sync.OverallProgress(nil)).To(Equal(0))
	})
})

var _ = Describe("DiscoverWebinars", func() {
	It("bounds the listing to the configured lookback window", func() {
		var gotQuery url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			writeJSON(w, `{"webinars":[]}`)
		}))
		defer server.Close()

		store, engine, err := newTestEngine(server.URL)
		Expect(err).To(BeNil())
		defer store.Close()

		ids, err := engine.DiscoverWebinars(context.TODO())
		Expect(err).To(BeNil())
		Expect(ids).To(BeEmpty())

		Expect(gotQuery.Get("type")).To(Equal("past"))
		from, err := time.Parse("2006-01-02", gotQuery.Get("from"))
		Expect(err).To(BeNil())
		// Default lookback is 90 days.
		Expect(time.Since(from)).To(BeNumerically("~", 90*24*time.Hour, 25*time.Hour))
	})
})

var _ = Describe("Orchestrator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.TODO()
	})

	Context("with a healthy platform", func() {
		var (
			server *httptest.Server
			store  st.Store
			engine *sync.Engine
		)

		BeforeEach(func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me/webinars", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"webinars":[{"id":101,"uuid":"w-uuid","topic":"launch","duration":60,"host_email":"host@example.com"}]}`)
			})
			mux.HandleFunc("/past_webinars/101/instances", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"webinars":[{"uuid":"inst-1"}]}`)
			})
			mux.HandleFunc("/past_webinars/inst-1/participants", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"participants":[{"id":"p1","name":"Ada","user_email":"ada@example.com","duration":1800}]}`)
			})
			mux.HandleFunc("/webinars/101/registrants", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"registrants":[{"id":"r1","email":"ada@example.com","first_name":"Ada","status":"approved"}]}`)
			})
			mux.HandleFunc("/past_webinars/inst-1/qa", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"questions":[{"name":"Ada","email":"ada@example.com","question_details":[{"question":"when is GA?","answer":"next month"}]}]}`)
			})
			mux.HandleFunc("/past_webinars/inst-1/polls", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"questions":[]}`)
			})
			mux.HandleFunc("/webinars/101/recordings", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})
			server = httptest.NewServer(mux)

			var err error
			store, engine, err = newTestEngine(server.URL)
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			server.Close()
			store.Close()
		})

		It("runs a comprehensive job through every stage", func() {
			job, err := store.SyncJob().Create(ctx, model.SyncJob{
				JobType: model.JobTypeComprehensive,
				Status:  model.JobStatusPending,
				Stages:  sync.StagesFor(model.JobTypeComprehensive),
			})
			Expect(err).To(BeNil())

			Expect(sync.NewOrchestrator(engine).Run(ctx, job.ID)).To(BeNil())

			updated, err := store.SyncJob().Get(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.JobStatusCompleted))
			Expect(updated.Progress).To(Equal(100))
			Expect(updated.CompletedAt).ToNot(BeNil())
			Expect(updated.Version).To(BeNumerically(">", 0))

			for _, stage := range updated.Stages {
				Expect(stage.Status).To(Equal(model.StageStatusCompleted), stage.ID)
				Expect(stage.StartTime).ToNot(BeNil(), stage.ID)
				Expect(stage.EndTime).ToNot(BeNil(), stage.ID)
			}

			// Discovery upserted the webinar, participants landed as current rows.
			webinar, err := store.Webinar().Get(ctx, 101)
			Expect(err).To(BeNil())
			Expect(webinar.Topic).To(Equal("launch"))

			count, err := store.Participant().CountCurrent(ctx, 101)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))

			interactions, err := store.Interaction().CountByWebinar(ctx, 101)
			Expect(err).To(BeNil())
			Expect(interactions).To(Equal(int64(1)))
		})

		It("stops a discovery job after the discovery stage", func() {
			job, err := store.SyncJob().Create(ctx, model.SyncJob{
				JobType: model.JobTypeDiscovery,
				Status:  model.JobStatusPending,
				Stages:  sync.StagesFor(model.JobTypeDiscovery),
			})
			Expect(err).To(BeNil())
			Expect(job.Stages).To(HaveLen(2))

			Expect(sync.NewOrchestrator(engine).Run(ctx, job.ID)).To(BeNil())

			updated, err := store.SyncJob().Get(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.JobStatusCompleted))
			Expect(updated.Metadata["webinarsFound"]).To(BeEquivalentTo(1))

			// No detail stages ran: nothing but the webinar row was written.
			count, err := store.Participant().CountCurrent(ctx, 101)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("does not rerun a finished job", func() {
			job, err := store.SyncJob().Create(ctx, model.SyncJob{
				JobType: model.JobTypeDiscovery,
				Status:  model.JobStatusCompleted,
				Stages:  sync.StagesFor(model.JobTypeDiscovery),
			})
			Expect(err).To(BeNil())

			Expect(sync.NewOrchestrator(engine).Run(ctx, job.ID)).To(BeNil())

			updated, err := store.SyncJob().Get(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(updated.Stages[0].Status).To(Equal(model.StageStatusPending))
		})
	})

	Context("when the job is cancelled mid-flight", func() {
		var (
			server    *httptest.Server
			store     st.Store
			engine    *sync.Engine
			cancelJob func()
		)

		BeforeEach(func() {
			cancelJob = nil
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me/webinars", func(w http.ResponseWriter, r *http.Request) {
				// The cancel lands while the discovery fetch is in flight.
				if cancelJob != nil {
					cancelJob()
				}
				writeJSON(w, `{"webinars":[{"id":303,"uuid":"w3","topic":"cancelled","duration":45}]}`)
			})
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				switch {
				case strings.HasSuffix(r.URL.Path, "/instances"):
					writeJSON(w, `{"webinars":[]}`)
				case strings.HasSuffix(r.URL.Path, "/participants"):
					writeJSON(w, `{"participants":[]}`)
				case strings.HasSuffix(r.URL.Path, "/registrants"):
					writeJSON(w, `{"registrants":[]}`)
				case strings.HasSuffix(r.URL.Path, "/qa"), strings.HasSuffix(r.URL.Path, "/polls"):
					writeJSON(w, `{"questions":[]}`)
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			})
			server = httptest.NewServer(mux)

			var err error
			store, engine, err = newTestEngine(server.URL)
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			server.Close()
			store.Close()
		})

		It("stops at the next stage boundary and keeps the cancelled status", func() {
			job, err := store.SyncJob().Create(ctx, model.SyncJob{
				JobType: model.JobTypeComprehensive,
				Status:  model.JobStatusPending,
				Stages:  sync.StagesFor(model.JobTypeComprehensive),
			})
			Expect(err).To(BeNil())

			cancelJob = func() {
				stored, err := store.SyncJob().Get(ctx, job.ID)
				Expect(err).To(BeNil())

				now := time.Now().UTC()
				msg := "cancelled by user"
				stored.Status = model.JobStatusFailed
				stored.ErrorMessage = &msg
				stored.CompletedAt = &now
				_, err = store.SyncJob().Update(ctx, *stored)
				Expect(err).To(BeNil())
			}

			Expect(sync.NewOrchestrator(engine).Run(ctx, job.ID)).To(BeNil())

			updated, err := store.SyncJob().Get(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.JobStatusFailed))
			Expect(updated.ErrorMessage).ToNot(BeNil())
			Expect(*updated.ErrorMessage).To(Equal("cancelled by user"))
			Expect(updated.CompletedAt).ToNot(BeNil())

			// No stage past discovery ever ran or was published.
			byID := map[string]string{}
			for _, stage := range updated.Stages {
				byID[stage.ID] = stage.Status
			}
			Expect(byID[sync.StageParticipants]).To(Equal(model.StageStatusPending))
			Expect(byID[sync.StageRegistrations]).To(Equal(model.StageStatusPending))
			Expect(byID[sync.StageCleanup]).To(Equal(model.StageStatusPending))

			count, err := store.Participant().CountCurrent(ctx, 303)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})
	})

	Context("when the participants fetch fails", func() {
		var (
			server *httptest.Server
			store  st.Store
			engine *sync.Engine
		)

		BeforeEach(func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me/webinars", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"webinars":[{"id":202,"uuid":"w2","topic":"retro","duration":30}]}`)
			})
			mux.HandleFunc("/past_webinars/202/instances", func(w http.ResponseWriter, r *http.Request) {
				// Non-transient client error: the paginator must not retry it.
				http.Error(w, `{"code":300,"message":"invalid webinar"}`, http.StatusBadRequest)
			})
			server = httptest.NewServer(mux)

			var err error
			store, engine, err = newTestEngine(server.URL)
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			server.Close()
			store.Close()
		})

		It("fails the job at the hard stage and leaves later stages pending", func() {
			job, err := store.SyncJob().Create(ctx, model.SyncJob{
				JobType: model.JobTypeComprehensive,
				Status:  model.JobStatusPending,
				Stages:  sync.StagesFor(model.JobTypeComprehensive),
			})
			Expect(err).To(BeNil())

			Expect(sync.NewOrchestrator(engine).Run(ctx, job.ID)).ToNot(BeNil())

			updated, err := store.SyncJob().Get(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.JobStatusFailed))
			Expect(updated.ErrorMessage).ToNot(BeNil())
			Expect(updated.CompletedAt).ToNot(BeNil())
			Expect(updated.Errors).ToNot(BeEmpty())

			byID := map[string]string{}
			for _, stage := range updated.Stages {
				byID[stage.ID] = stage.Status
			}
			Expect(byID[sync.StageValidation]).To(Equal(model.StageStatusCompleted))
			Expect(byID[sync.StageDiscovery]).To(Equal(model.StageStatusCompleted))
			Expect(byID[sync.StageParticipants]).To(Equal(model.StageStatusFailed))
			Expect(byID[sync.StageRegistrations]).To(Equal(model.StageStatusPending))
			Expect(byID[sync.StageAnalytics]).To(Equal(model.StageStatusPending))
			Expect(byID[sync.StageCleanup]).To(Equal(model.StageStatusPending))
		})
	})
})
