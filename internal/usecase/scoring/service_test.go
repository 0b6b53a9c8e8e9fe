package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Abhishekkr6/teampulse-sub000/internal/events"
	"github.com/Abhishekkr6/teampulse-sub000/internal/ports"
)

type fakeStore struct {
	mu sync.Mutex

	repos   map[string]ports.Repository
	users   map[string]ports.User
	prs     map[string]ports.PullRequest
	commits map[string]ports.Commit

	scores    map[string]float64
	processed map[string][]string
	alerts    []ports.AlertCreate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		repos:     make(map[string]ports.Repository),
		users:     make(map[string]ports.User),
		prs:       make(map[string]ports.PullRequest),
		commits:   make(map[string]ports.Commit),
		scores:    make(map[string]float64),
		processed: make(map[string][]string),
	}
}

func (s *fakeStore) ResolveRepositoryByName(_ context.Context, _ string) (ports.Repository, error) {
	return ports.Repository{}, ports.ErrRepositoryNotFound
}

func (s *fakeStore) GetRepository(_ context.Context, repoID string) (ports.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[repoID]
	if !ok {
		return ports.Repository{}, ports.ErrRepositoryNotFound
	}
	return repo, nil
}

func (s *fakeStore) GetUserByLogin(_ context.Context, login string) (ports.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[login]
	if !ok {
		return ports.User{}, ports.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeStore) UpsertCommit(_ context.Context, _ ports.CommitUpsert) (ports.Commit, error) {
	return ports.Commit{}, errors.New("not implemented")
}

func (s *fakeStore) GetCommitsByIDs(_ context.Context, commitIDs []string) ([]ports.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]ports.Commit, 0, len(commitIDs))
	for _, id := range commitIDs {
		if commit, ok := s.commits[id]; ok {
			items = append(items, commit)
		}
	}
	return items, nil
}

func (s *fakeStore) MarkCommitProcessed(_ context.Context, commitID string, modules []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[commitID] = modules
	return nil
}

func (s *fakeStore) UpsertPullRequest(_ context.Context, _ ports.PullRequestUpsert) (ports.PullRequest, error) {
	return ports.PullRequest{}, errors.New("not implemented")
}

func (s *fakeStore) GetPullRequest(_ context.Context, prID string) (ports.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.prs[prID]
	if !ok {
		return ports.PullRequest{}, ports.ErrPullRequestNotFound
	}
	return pr, nil
}

func (s *fakeStore) SetPullRequestScore(_ context.Context, prID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prs[prID]; !ok {
		return ports.ErrPullRequestNotFound
	}
	s.scores[prID] = score
	return nil
}

func (s *fakeStore) CreateAlert(_ context.Context, input ports.AlertCreate) (ports.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, input)
	return ports.Alert{AlertID: "alert-1", Type: input.Type, Severity: input.Severity}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	events   []any
	failNext bool
}

func (p *fakePublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, publisher *fakePublisher, threshold float64) *Service {
	svc := NewService(store, publisher, threshold)
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedPullRequest(store *fakeStore) ports.PullRequest {
	orgID := "org-1"
	store.repos["repo-1"] = ports.Repository{RepoID: "repo-1", OrgID: &orgID, FullName: "acme/api"}
	store.users["dev1"] = ports.User{UserID: "user-1", Login: "dev1", DisplayName: "Dev One"}

	pr := ports.PullRequest{
		PRID:         "pr-1",
		ProviderPRID: 991,
		RepoID:       "repo-1",
		Number:       7,
		Title:        "Add cache layer",
		AuthorLogin:  "dev1",
		State:        "open",
		CreatedAt:    testNow,
		FilesChanged: 25,
		Additions:    1200,
		Deletions:    50,
	}
	store.prs[pr.PRID] = pr
	return pr
}

func TestAnalyzePullRequestScoresAndAlerts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pr := seedPullRequest(store)
	publisher := &fakePublisher{}
	svc := newTestService(store, publisher, 0.5)

	err := svc.AnalyzePullRequest(context.Background(), ports.PRAnalysisJob{PRID: pr.PRID, RepoID: pr.RepoID, Trigger: "webhook"})
	if err != nil {
		t.Fatalf("AnalyzePullRequest() error = %v", err)
	}

	// 25 files, 1200 additions, 50 deletions, zero hours open.
	if got := store.scores[pr.PRID]; got != 0.61 {
		t.Fatalf("persisted score = %v, want 0.61", got)
	}

	if len(store.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(store.alerts))
	}
	alert := store.alerts[0]
	if alert.Type != ports.AlertTypeHighRiskPR || alert.Severity != ports.AlertSeverityHigh {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if alert.RepoID == nil || *alert.RepoID != "repo-1" {
		t.Fatalf("alert repo = %v, want repo-1", alert.RepoID)
	}
	if alert.OrgID == nil || *alert.OrgID != "org-1" {
		t.Fatalf("alert org = %v, want org-1", alert.OrgID)
	}
	if alert.HighRiskPR == nil {
		t.Fatal("alert metadata missing")
	}
	if alert.HighRiskPR.AuthorName != "Dev One" {
		t.Fatalf("author name = %q, want display name", alert.HighRiskPR.AuthorName)
	}
	if alert.HighRiskPR.RiskScore != 0.61 || alert.HighRiskPR.Number != 7 {
		t.Fatalf("unexpected metadata: %+v", alert.HighRiskPR)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("got %d published events, want 2", len(publisher.events))
	}
	updated, ok := publisher.events[0].(events.PRUpdated)
	if !ok {
		t.Fatalf("first event type = %T, want PRUpdated", publisher.events[0])
	}
	want := events.NewPRUpdated("pr-1", "repo-1", 7, "Add cache layer", 0.61, testNow)
	if !reflect.DeepEqual(updated, want) {
		t.Fatalf("PRUpdated = %+v, want %+v", updated, want)
	}
	newAlert, ok := publisher.events[1].(events.NewAlert)
	if !ok {
		t.Fatalf("second event type = %T, want NewAlert", publisher.events[1])
	}
	if newAlert.AlertType != ports.AlertTypeHighRiskPR || newAlert.RiskScore != 0.61 {
		t.Fatalf("unexpected NewAlert: %+v", newAlert)
	}
}

func TestAnalyzePullRequestBelowThreshold(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pr := seedPullRequest(store)
	publisher := &fakePublisher{}
	svc := newTestService(store, publisher, 0.9)

	if err := svc.AnalyzePullRequest(context.Background(), ports.PRAnalysisJob{PRID: pr.PRID}); err != nil {
		t.Fatalf("AnalyzePullRequest() error = %v", err)
	}

	if len(store.alerts) != 0 {
		t.Fatalf("got %d alerts below threshold, want 0", len(store.alerts))
	}
	if len(publisher.events) != 1 {
		t.Fatalf("got %d events, want only PR_UPDATED", len(publisher.events))
	}
	if _, ok := publisher.events[0].(events.PRUpdated); !ok {
		t.Fatalf("event type = %T, want PRUpdated", publisher.events[0])
	}
}

func TestAnalyzePullRequestThresholdBoundary(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pr := seedPullRequest(store)
	svc := newTestService(store, &fakePublisher{}, 0.61)

	if err := svc.AnalyzePullRequest(context.Background(), ports.PRAnalysisJob{PRID: pr.PRID}); err != nil {
		t.Fatalf("AnalyzePullRequest() error = %v", err)
	}
	if len(store.alerts) != 1 {
		t.Fatal("score equal to threshold must alert")
	}
}

func TestAnalyzePullRequestGone(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	publisher := &fakePublisher{}
	svc := newTestService(store, publisher, 0.5)

	if err := svc.AnalyzePullRequest(context.Background(), ports.PRAnalysisJob{PRID: "missing"}); err != nil {
		t.Fatalf("missing pull request must be benign, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("got %d events for missing pr, want 0", len(publisher.events))
	}
}

func TestAnalyzePullRequestPublishFailureSwallowed(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pr := seedPullRequest(store)
	publisher := &fakePublisher{failNext: true}
	svc := newTestService(store, publisher, 0.9)

	if err := svc.AnalyzePullRequest(context.Background(), ports.PRAnalysisJob{PRID: pr.PRID}); err != nil {
		t.Fatalf("publish failure must not fail the job, got %v", err)
	}
	if got := store.scores[pr.PRID]; got != 0.61 {
		t.Fatalf("score not persisted despite publish failure: %v", got)
	}
}

func TestAnalyzePullRequestAuthorFallsBackToLogin(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pr := seedPullRequest(store)
	delete(store.users, "dev1")
	svc := newTestService(store, &fakePublisher{}, 0.5)

	if err := svc.AnalyzePullRequest(context.Background(), ports.PRAnalysisJob{PRID: pr.PRID}); err != nil {
		t.Fatalf("AnalyzePullRequest() error = %v", err)
	}
	if got := store.alerts[0].HighRiskPR.AuthorName; got != "dev1" {
		t.Fatalf("author name = %q, want login fallback", got)
	}
}

func TestHandlePRAnalysisJob(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pr := seedPullRequest(store)
	svc := newTestService(store, &fakePublisher{}, 0.5)

	data, err := json.Marshal(ports.PRAnalysisJob{PRID: pr.PRID, RepoID: pr.RepoID, Trigger: "webhook"})
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	if err := svc.HandlePRAnalysisJob(context.Background(), data); err != nil {
		t.Fatalf("HandlePRAnalysisJob() error = %v", err)
	}
	if _, ok := store.scores[pr.PRID]; !ok {
		t.Fatal("job did not persist a score")
	}

	if err := svc.HandlePRAnalysisJob(context.Background(), []byte("{broken")); err == nil {
		t.Fatal("malformed job payload must error")
	}
}

func TestSetRiskThreshold(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeStore(), &fakePublisher{}, 0.5)
	if got := svc.RiskThreshold(); got != 0.5 {
		t.Fatalf("initial threshold = %v, want 0.5", got)
	}
	svc.SetRiskThreshold(0.8)
	if got := svc.RiskThreshold(); got != 0.8 {
		t.Fatalf("threshold after update = %v, want 0.8", got)
	}
}

func TestProcessCommitBatch(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.commits["commit-1"] = ports.Commit{
		CommitID:     "commit-1",
		SHA:          "sha-1",
		RepoID:       "repo-1",
		TouchedPaths: []string{"pkg/parser/lexer.go", "pkg/parser/parser.go", "cmd/api/main.go", "README.md"},
	}
	store.commits["commit-2"] = ports.Commit{
		CommitID:     "commit-2",
		SHA:          "sha-2",
		RepoID:       "repo-1",
		TouchedPaths: []string{"Makefile"},
	}
	svc := newTestService(store, &fakePublisher{}, 0.5)

	err := svc.ProcessCommitBatch(context.Background(), ports.CommitBatchJob{
		RepoID:    "repo-1",
		CommitIDs: []string{"commit-1", "commit-2", "commit-gone"},
	})
	if err != nil {
		t.Fatalf("ProcessCommitBatch() error = %v", err)
	}

	if got, want := store.processed["commit-1"], []string{"cmd", "pkg"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("commit-1 modules = %v, want %v", got, want)
	}
	if got := store.processed["commit-2"]; len(got) != 0 {
		t.Fatalf("root-only commit has modules %v, want none", got)
	}
	if _, ok := store.processed["commit-gone"]; ok {
		t.Fatal("vanished commit must not be marked processed")
	}
}

func TestDeriveModules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"nil paths", nil, []string{}},
		{"root files only", []string{"README.md", "go.mod"}, []string{}},
		{"dedupes and sorts", []string{"web/app.ts", "api/server.go", "api/router.go"}, []string{"api", "web"}},
		{"leading slash skipped", []string{"/etc/passwd"}, []string{}},
		{"nested paths use top level", []string{"internal/usecase/ingest/service.go"}, []string{"internal"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := deriveModules(tt.paths)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("deriveModules(%v) = %v, want %v", tt.paths, got, tt.want)
			}
		})
	}
}
