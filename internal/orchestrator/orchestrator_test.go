package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"appforge/internal/backup"
	"appforge/internal/build"
	"appforge/internal/config"
	"appforge/internal/content"
	"appforge/internal/deploy"
	"appforge/internal/domain/model"
	"appforge/internal/ledger"
)

type fakeContainer struct {
	image   string
	port    int
	running bool
}

// fakeEngine simulates a container runtime with name and port exclusivity.
type fakeEngine struct {
	mu         sync.Mutex
	buildErrs  []error
	builds     int
	onBuild    func()
	containers map[string]*fakeContainer
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{containers: make(map[string]*fakeContainer)}
}

func (e *fakeEngine) failNextBuilds(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildErrs = append(e.buildErrs, errs...)
}

func (e *fakeEngine) BuildImage(ctx context.Context, contextDir string, tags, cacheFrom []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.builds++
	if e.onBuild != nil {
		e.onBuild()
	}
	if len(e.buildErrs) > 0 {
		err := e.buildErrs[0]
		e.buildErrs = e.buildErrs[1:]
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *fakeEngine) RunContainer(ctx context.Context, image, name string, hostPort, containerPort int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.containers[name]; ok && c.running {
		return "", fmt.Errorf("container name %s already in use", name)
	}
	for n, c := range e.containers {
		if c.running && c.port == hostPort {
			return "", fmt.Errorf("port %d already bound by %s", hostPort, n)
		}
	}
	e.containers[name] = &fakeContainer{image: image, port: hostPort, running: true}
	return name, nil
}

func (e *fakeEngine) StopContainer(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.containers[name]; ok {
		c.running = false
	}
	return nil
}

func (e *fakeEngine) RemoveContainer(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.containers, name)
	return nil
}

func (e *fakeEngine) IsRunning(ctx context.Context, name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.containers[name]
	return ok && c.running, nil
}

func (e *fakeEngine) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	return "fake container logs", nil
}

func (e *fakeEngine) runningOn(port int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for n, c := range e.containers {
		if c.running && c.port == port {
			return n
		}
	}
	return ""
}

func (e *fakeEngine) exists(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.containers[name]
	return ok
}

// gateChecker reports healthy unless the container/port pair is denied.
type gateChecker struct {
	deny map[string]bool
}

func (c *gateChecker) Check(ctx context.Context, containerName string, port int, budget time.Duration) bool {
	return !c.deny[fmt.Sprintf("%s:%d", containerName, port)]
}

type fakeGenerator struct {
	createFiles  model.FileSet
	improveFiles model.FileSet
	fixFiles     model.FileSet
	createCalls  int
	improveCalls int
	fixCalls     int
}

func (g *fakeGenerator) GenerateApp(ctx context.Context, prompt string) (*model.GeneratedApp, error) {
	g.createCalls++
	return &model.GeneratedApp{Files: g.createFiles}, nil
}

func (g *fakeGenerator) ImproveApp(ctx context.Context, appName string, files model.FileSet, intent string) (*model.GeneratedApp, error) {
	g.improveCalls++
	return &model.GeneratedApp{Files: g.improveFiles}, nil
}

func (g *fakeGenerator) SuggestFix(ctx context.Context, appName string, files model.FileSet, diagnostics string) (*model.GeneratedApp, error) {
	g.fixCalls++
	return &model.GeneratedApp{Files: g.fixFiles}, nil
}

type harness struct {
	cfg    *config.Config
	store  *ledger.Store
	engine *fakeEngine
	gen    *fakeGenerator
	orch   *Orchestrator
}

func newHarness(t *testing.T, gen *fakeGenerator, checker deploy.HealthChecker) *harness {
	t.Helper()
	cfg := &config.Config{
		BasePath:         t.TempDir(),
		LogLevel:         "error",
		BasePort:         4000,
		KeepBackups:      5,
		BuildRetries:     1,
		BuildTimeoutSec:  30,
		HealthTimeoutSec: 1,
	}
	store, err := ledger.Open(cfg.GetLedgerPath(), cfg.BasePort)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if checker == nil {
		checker = &gateChecker{}
	}
	engine := newFakeEngine()
	orch := New(cfg, store, backup.NewManager(cfg), build.NewBuilder(cfg, engine),
		deploy.NewDeployer(cfg, engine, checker), engine, gen)
	return &harness{cfg: cfg, store: store, engine: engine, gen: gen, orch: orch}
}

func backendFiles(serverBody string) model.FileSet {
	return model.FileSet{
		"package.json": []byte(`{"name":"todo","dependencies":{"express":"^4.18.0"},"scripts":{"start":"node server.js"}}`),
		"server.js":    []byte(serverBody),
	}
}

func (h *harness) mustCreate(t *testing.T, name, prompt string) *model.Version {
	t.Helper()
	v, err := h.orch.CreateApp(context.Background(), name, prompt)
	if err != nil {
		t.Fatalf("CreateApp: %v", err)
	}
	return v
}

func assertDiskMatches(t *testing.T, appDir string, v *model.Version) {
	t.Helper()
	got := content.Fingerprint(appDir, v.Files)
	if !reflect.DeepEqual(got, v.FileHashes) {
		t.Errorf("live directory does not match version %s:\n got %v\nwant %v", v.Version, got, v.FileHashes)
	}
}

func TestCreateAppFirstVersion(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles(`require("express")().listen(3000)`)}
	h := newHarness(t, gen, nil)

	v := h.mustCreate(t, "todo", "build a todo list")

	if v.Version != "v1.0.0" {
		t.Fatalf("first version = %s, want v1.0.0", v.Version)
	}
	if v.Prompt != "build a todo list" {
		t.Errorf("prompt = %q", v.Prompt)
	}
	if len(v.AddedFiles) != 2 || len(v.ChangedFiles) != 0 || len(v.RemovedFiles) != 0 {
		t.Errorf("diff sets = added %v changed %v removed %v", v.AddedFiles, v.ChangedFiles, v.RemovedFiles)
	}

	app, err := h.store.GetApp("todo")
	if err != nil {
		t.Fatalf("GetApp: %v", err)
	}
	if app.Port != 4000 {
		t.Errorf("port = %d, want 4000", app.Port)
	}
	if app.CurrentVersion != "v1.0.0" || len(app.Versions) != 1 || !app.Versions[0].IsActive {
		t.Errorf("ledger state: current=%s versions=%d", app.CurrentVersion, len(app.Versions))
	}

	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("container on production port = %q, want todo-v1.0.0", got)
	}
	if h.engine.runningOn(5000) != "" {
		t.Errorf("temp port still bound after deployment")
	}

	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v)
	if v.BackupPath == "" {
		t.Errorf("initial version has no backup path")
	} else if _, err := os.Stat(filepath.Join(v.BackupPath, "server.js")); err != nil {
		t.Errorf("initial snapshot missing: %v", err)
	}
	if v.Performance["buildMs"] < 0 || v.Performance["deployMs"] < 0 {
		t.Errorf("performance timings missing: %v", v.Performance)
	}
}

func TestCreateAppRejectsInvalidName(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("x")}
	h := newHarness(t, gen, nil)

	if _, err := h.orch.CreateApp(context.Background(), "Bad_Name", "x"); err == nil {
		t.Fatal("expected error for invalid app name")
	}
	if gen.createCalls != 0 {
		t.Errorf("generator called despite invalid name")
	}
}

func TestCreateAppBuildFailureUnwindsRegistration(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("x")}
	h := newHarness(t, gen, nil)
	h.engine.failNextBuilds(errors.New("npm install exploded"))

	if _, err := h.orch.CreateApp(context.Background(), "todo", "x"); err == nil {
		t.Fatal("expected create to fail")
	}
	if _, err := h.store.GetApp("todo"); err == nil {
		t.Fatal("failed creation left the app registered")
	}

	// The name is reusable once the cause is gone.
	v := h.mustCreate(t, "todo", "x")
	if v.Version != "v1.0.0" {
		t.Fatalf("recreate version = %s", v.Version)
	}
}

func TestCreateAppCommitFailureUnwindsContainer(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("x")}
	h := newHarness(t, gen, nil)

	// Making the base directory read-only once the build starts lets the app
	// registration flush succeed while the final commit flush fails.
	h.engine.onBuild = func() {
		if err := os.Chmod(h.cfg.BasePath, 0o555); err != nil {
			t.Fatalf("chmod base path: %v", err)
		}
	}
	t.Cleanup(func() { os.Chmod(h.cfg.BasePath, 0o755) })

	if _, err := h.orch.CreateApp(context.Background(), "todo", "x"); err == nil {
		t.Fatal("expected create to fail when the commit cannot be persisted")
	}

	if h.engine.exists("todo-v1.0.0") {
		t.Error("container of failed creation left behind")
	}
	if got := h.engine.runningOn(4000); got != "" {
		t.Errorf("production port still bound by %q", got)
	}
	if _, err := h.store.GetApp("todo"); err == nil {
		t.Error("failed creation left a versionless app registered")
	}
}

func TestImproveCommitsChildVersion(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("v1")}
	h := newHarness(t, gen, nil)
	h.mustCreate(t, "todo", "build a todo list")

	gen.improveFiles = backendFiles("v2 with dark mode")
	gen.improveFiles["routes/api.js"] = []byte("module.exports = {}")

	v, err := h.orch.Improve(context.Background(), "todo", "add dark mode")
	if err != nil {
		t.Fatalf("Improve: %v", err)
	}
	if v.Version != "v1.0.1" {
		t.Fatalf("version = %s, want v1.0.1", v.Version)
	}
	if v.ParentVersion != "v1.0.0" {
		t.Errorf("parent = %s", v.ParentVersion)
	}
	if !reflect.DeepEqual(v.ChangedFiles, []string{"server.js"}) {
		t.Errorf("changed = %v, want [server.js]", v.ChangedFiles)
	}
	if !reflect.DeepEqual(v.AddedFiles, []string{"routes/api.js"}) {
		t.Errorf("added = %v, want [routes/api.js]", v.AddedFiles)
	}
	if !reflect.DeepEqual(v.Improvements, []string{"add dark mode"}) {
		t.Errorf("improvements = %v", v.Improvements)
	}

	app, _ := h.store.GetApp("todo")
	if app.CurrentVersion != "v1.0.1" {
		t.Errorf("current = %s", app.CurrentVersion)
	}
	prev := app.FindVersion("v1.0.0")
	if prev.IsActive {
		t.Errorf("previous version still active")
	}
	if prev.BackupPath == "" {
		t.Errorf("previous version has no recorded backup path")
	}

	if got := h.engine.runningOn(4000); got != "todo-v1.0.1" {
		t.Errorf("container on production port = %q", got)
	}
	if h.engine.exists("todo-v1.0.0") {
		t.Errorf("old container not removed after successful swap")
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v)
}

func TestImproveManifestChangeBumpsMinor(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("v1")}
	h := newHarness(t, gen, nil)
	h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("v1")
	gen.improveFiles["package.json"] = []byte(`{"name":"todo","dependencies":{"express":"^4.18.0","cors":"^2.8.5"}}`)

	v, err := h.orch.Improve(context.Background(), "todo", "enable cors")
	if err != nil {
		t.Fatalf("Improve: %v", err)
	}
	if v.Version != "v1.1.0" {
		t.Errorf("version = %s, want v1.1.0 for a manifest change", v.Version)
	}
}

func TestImproveBuildFailureRestoresPrevious(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("stable")}
	h := newHarness(t, gen, nil)
	v1 := h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("broken")
	h.engine.failNextBuilds(errors.New("syntax error in server.js"))

	if _, err := h.orch.Improve(context.Background(), "todo", "break it"); err == nil {
		t.Fatal("expected improve to fail")
	}

	app, _ := h.store.GetApp("todo")
	if app.CurrentVersion != "v1.0.0" || len(app.Versions) != 1 {
		t.Fatalf("ledger mutated by failed cycle: current=%s versions=%d", app.CurrentVersion, len(app.Versions))
	}
	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("previous container no longer serving: %q", got)
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v1)
}

func TestImproveBuildFailureRemovesAddedFiles(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("stable")}
	h := newHarness(t, gen, nil)
	v1 := h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("broken")
	gen.improveFiles["routes/extra.js"] = []byte("module.exports = {}")
	h.engine.failNextBuilds(errors.New("syntax error in routes/extra.js"))

	if _, err := h.orch.Improve(context.Background(), "todo", "break it"); err == nil {
		t.Fatal("expected improve to fail")
	}

	// The snapshot restore only overwrites; files the failed cycle added must
	// be deleted separately or they leak into the next cycle's diff.
	if _, err := os.Stat(filepath.Join(h.cfg.GetAppPath("todo"), "routes/extra.js")); !os.IsNotExist(err) {
		t.Errorf("file added by failed cycle still on disk (stat err = %v)", err)
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v1)
}

func TestImproveTempHealthFailureLeavesOldServing(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("stable")}
	checker := &gateChecker{deny: map[string]bool{"todo-v1.0.1:5000": true}}
	h := newHarness(t, gen, checker)
	v1 := h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("unhealthy")

	_, err := h.orch.Improve(context.Background(), "todo", "break health")
	if err == nil {
		t.Fatal("expected improve to fail")
	}
	var hcErr *model.HealthCheckError
	if !errors.As(err, &hcErr) {
		t.Fatalf("error = %v, want HealthCheckError", err)
	}

	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("old container disturbed by pre-swap failure: %q", got)
	}
	if h.engine.exists("todo-v1.0.1") {
		t.Errorf("unhealthy container not cleaned up")
	}
	app, _ := h.store.GetApp("todo")
	if app.CurrentVersion != "v1.0.0" || len(app.Versions) != 1 {
		t.Errorf("ledger mutated: current=%s versions=%d", app.CurrentVersion, len(app.Versions))
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v1)
}

func TestImproveTempPortStartFailureLeavesOldServing(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("stable")}
	h := newHarness(t, gen, nil)
	v1 := h.mustCreate(t, "todo", "x")

	// An unrelated container squatting on the temp port makes the new
	// container fail to start before it ever serves traffic.
	if _, err := h.engine.RunContainer(context.Background(), "other:latest", "squatter", 5000, 3000); err != nil {
		t.Fatalf("seed temp-port container: %v", err)
	}

	gen.improveFiles = backendFiles("never runs")

	if _, err := h.orch.Improve(context.Background(), "todo", "tweak"); err == nil {
		t.Fatal("expected improve to fail")
	}

	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("old container disturbed by a failure that never reached the swap: %q", got)
	}
	app, _ := h.store.GetApp("todo")
	if app.CurrentVersion != "v1.0.0" || len(app.Versions) != 1 {
		t.Errorf("ledger mutated: current=%s versions=%d", app.CurrentVersion, len(app.Versions))
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v1)
}

func TestImprovePostSwapFailureRecoversPrevious(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("stable")}
	// Healthy on the temp port, unhealthy once rebound to production.
	checker := &gateChecker{deny: map[string]bool{"todo-v1.0.1:4000": true}}
	h := newHarness(t, gen, checker)
	v1 := h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("flaky")
	gen.improveFiles["routes/extra.js"] = []byte("module.exports = {}")

	if _, err := h.orch.Improve(context.Background(), "todo", "break final health"); err == nil {
		t.Fatal("expected improve to fail")
	}

	app, _ := h.store.GetApp("todo")
	if app.CurrentVersion != "v1.0.0" || len(app.Versions) != 1 {
		t.Fatalf("ledger mutated: current=%s versions=%d", app.CurrentVersion, len(app.Versions))
	}
	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("previous version not recovered on production port: %q", got)
	}
	if h.engine.exists("todo-v1.0.1") {
		t.Errorf("failed attempt's container not cleared during recovery")
	}
	if _, err := os.Stat(filepath.Join(h.cfg.GetAppPath("todo"), "routes/extra.js")); !os.IsNotExist(err) {
		t.Errorf("file added by failed cycle still on disk (stat err = %v)", err)
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v1)
}

func TestRollbackRestoresTargetVersion(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("v1 body")}
	h := newHarness(t, gen, nil)
	v1 := h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("v2 body")
	if _, err := h.orch.Improve(context.Background(), "todo", "tweak"); err != nil {
		t.Fatalf("Improve: %v", err)
	}

	if err := h.orch.Rollback(context.Background(), "todo", "v1.0.0"); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	app, _ := h.store.GetApp("todo")
	if app.CurrentVersion != "v1.0.0" {
		t.Fatalf("current = %s, want v1.0.0", app.CurrentVersion)
	}
	if len(app.Versions) != 2 {
		t.Fatalf("rollback rewrote history: %d versions", len(app.Versions))
	}
	old := app.FindVersion("v1.0.0")
	newer := app.FindVersion("v1.0.1")
	if !old.IsActive || old.DockerStatus != model.DockerStatusRunning {
		t.Errorf("target version not active/running: active=%v status=%s", old.IsActive, old.DockerStatus)
	}
	if newer.IsActive || newer.DockerStatus != model.DockerStatusStopped {
		t.Errorf("rolled-back version not deactivated: active=%v status=%s", newer.IsActive, newer.DockerStatus)
	}
	if newer.BackupPath == "" {
		t.Errorf("no snapshot recorded for the version being rolled back from")
	}

	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("container on production port = %q", got)
	}
	assertDiskMatches(t, h.cfg.GetAppPath("todo"), v1)
}

func TestRollbackRejectsUnknownAndActiveVersions(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("x")}
	h := newHarness(t, gen, nil)
	h.mustCreate(t, "todo", "x")

	if err := h.orch.Rollback(context.Background(), "todo", "v9.9.9"); err == nil {
		t.Error("expected error for unknown version")
	}
	if err := h.orch.Rollback(context.Background(), "todo", "v1.0.0"); err == nil {
		t.Error("expected error when target is already active")
	}
}

func TestRetryBuildRedeploysActiveVersion(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("x")}
	h := newHarness(t, gen, nil)
	h.mustCreate(t, "todo", "x")

	// Simulate the container dying out of band.
	h.engine.StopContainer(context.Background(), "todo-v1.0.0")

	v, err := h.orch.RetryBuild(context.Background(), "todo")
	if err != nil {
		t.Fatalf("RetryBuild: %v", err)
	}
	if v.Version != "v1.0.0" || v.DockerStatus != model.DockerStatusRunning {
		t.Errorf("version = %s status = %s", v.Version, v.DockerStatus)
	}
	if got := h.engine.runningOn(4000); got != "todo-v1.0.0" {
		t.Errorf("container not back on production port: %q", got)
	}
}

func TestBuildRetryAppliesSuggestedFix(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("broken")}
	h := newHarness(t, gen, nil)
	h.cfg.BuildRetries = 2

	fixed := backendFiles("fixed")
	gen.fixFiles = model.FileSet{"server.js": fixed["server.js"]}
	h.engine.failNextBuilds(&model.BuildError{
		App:         "todo",
		Diagnostics: "SyntaxError: unexpected token",
		Err:         errors.New("build failed"),
	})

	v := h.mustCreate(t, "todo", "x")
	if gen.fixCalls != 1 {
		t.Fatalf("fix suggestions requested %d times, want 1", gen.fixCalls)
	}
	got, err := os.ReadFile(filepath.Join(h.cfg.GetAppPath("todo"), "server.js"))
	if err != nil {
		t.Fatalf("read server.js: %v", err)
	}
	if string(got) != "fixed" {
		t.Errorf("server.js = %q, want the suggested fix applied", got)
	}
	if v.FileHashes["server.js"] == "" {
		t.Errorf("committed hashes missing fixed file")
	}
}

func TestConcurrentCyclesOnSameAppSerialize(t *testing.T) {
	gen := &fakeGenerator{createFiles: backendFiles("v1")}
	h := newHarness(t, gen, nil)
	h.mustCreate(t, "todo", "x")

	gen.improveFiles = backendFiles("v2")
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.orch.Improve(context.Background(), "todo", "concurrent tweak")
		}(i)
	}
	wg.Wait()

	// One cycle commits v1.0.1; the other must either also commit (on top of
	// the first) or fail cleanly, never corrupt the ledger.
	app, _ := h.store.GetApp("todo")
	active := 0
	for _, v := range app.Versions {
		if v.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active versions = %d, want exactly 1", active)
	}
	if app.FindVersion(app.CurrentVersion) == nil {
		t.Fatalf("current pointer %s dangling", app.CurrentVersion)
	}
}
