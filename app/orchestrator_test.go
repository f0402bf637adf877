package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doorbell-core/apperr"
	"doorbell-core/config"
	"doorbell-core/database"
	"doorbell-core/device"
	"doorbell-core/display"
	"doorbell-core/models"
	"doorbell-core/session"
	"doorbell-core/storage"
	"doorbell-core/wifi"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	orch      *Orchestrator
	store     *storage.MemoryStore
	radio     *wifi.SimRadio
	disp      *display.LogDisplay
	restarter *device.RestartController
}

func newHarness(t *testing.T, mutate func(*config.Config), openErr error) *harness {
	t.Helper()

	cfg := config.Defaults()
	cfg.Port = "0"
	cfg.StoreBackend = "memory"
	cfg.WebRoot = t.TempDir()
	cfg.SplashDuration = 50 * time.Millisecond
	cfg.UIPollInterval = 5 * time.Millisecond
	cfg.ShutdownTimeoutSecs = 2
	if mutate != nil {
		mutate(cfg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	v, err := session.NewStaticVerifier("admin", "", string(hash), "admin")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	h := &harness{
		store:     storage.NewMemoryStore(),
		radio:     wifi.NewSimRadio(),
		disp:      display.NewLogDisplay(),
		restarter: device.NewRestartController(),
	}
	h.orch = New(Options{
		Config: cfg,
		OpenStore: func(context.Context, *config.Config) (storage.Store, *database.DB, error) {
			if openErr != nil {
				return nil, nil, openErr
			}
			return h.store, nil, nil
		},
		Radio:     h.radio,
		Display:   h.disp,
		Restarter: h.restarter,
		Bell:      device.NewBell(device.NewLogPin("bell")),
		Verifier:  v,
		Limiter:   session.NewWindowLimiter(time.Minute, 5, nil),
	})
	return h
}

func serverURL(t *testing.T, o *Orchestrator, path string) string {
	t.Helper()
	_, port, err := net.SplitHostPort(o.ServerAddr())
	if err != nil {
		t.Fatalf("server addr %q: %v", o.ServerAddr(), err)
	}
	return "http://" + net.JoinHostPort("127.0.0.1", port) + path
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBootWithoutCredentialsStartsAccessPoint(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.orch.Boot(context.Background()); err != nil {
		t.Fatalf("Boot error: %v", err)
	}
	t.Cleanup(func() { _ = h.orch.Shutdown(context.Background()) })

	if got := len(h.orch.Completed()); got != 8 {
		t.Fatalf("completed phases = %d, want 8", got)
	}
	if _, failed := h.orch.Failed(); failed {
		t.Fatalf("Failed() reported a phase")
	}
	if h.orch.Manager().Mode() != wifi.ModeAP {
		t.Fatalf("mode = %v, want AP", h.orch.Manager().Mode())
	}
	if h.orch.Manager().Stage() != wifi.StageRunning {
		t.Fatalf("stage = %v, want RUNNING", h.orch.Manager().Stage())
	}
	if h.radio.AP().SSID != "Doorbell_Setup" {
		t.Fatalf("AP SSID = %q, want default", h.radio.AP().SSID)
	}

	resp, err := http.Get(serverURL(t, h.orch, "/"))
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", resp.StatusCode)
	}

	waitFor(t, "setup screen", func() bool { return h.disp.Current() == display.ScreenWiFiSetup })
}

func TestSetupScreenConnectSavesAndRestarts(t *testing.T) {
	h := newHarness(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	waitFor(t, "setup screen", func() bool { return h.disp.Current() == display.ScreenWiFiSetup })
	waitFor(t, "setup submit", func() bool {
		return h.disp.Submit(display.SetupResult{
			Outcome:  display.SetupConnected,
			SSID:     "home",
			Password: "hunter22",
		})
	})

	select {
	case <-h.restarter.Requested():
	case <-time.After(3 * time.Second):
		t.Fatalf("restart not requested")
	}
	if h.restarter.Reason() != "wifi_setup" {
		t.Fatalf("restart reason = %q, want wifi_setup", h.restarter.Reason())
	}

	res, err := wifi.NewResolver(h.store, wifi.Credentials{}).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.State != wifi.Configured || res.Credentials.SSID != "home" || res.Credentials.Password != "hunter22" {
		t.Fatalf("resolution = %+v, want configured home/hunter22", res)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestSetupSkippedLeavesCredentialsAlone(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.orch.handleSetupResult(context.Background(), display.SetupResult{Outcome: display.SetupSkipped})
	h.orch.handleSetupResult(context.Background(), display.SetupResult{Outcome: display.SetupError, Err: errors.New("panel gone")})

	select {
	case <-h.restarter.Requested():
		t.Fatalf("restart requested for a skipped setup")
	default:
	}
}

func TestBootWithCredentialsStartsStation(t *testing.T) {
	h := newHarness(t, nil, nil)
	if err := wifi.SaveCredentials(context.Background(), h.store, wifi.Credentials{SSID: "home", Password: "hunter22"}); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}

	if err := h.orch.Boot(context.Background()); err != nil {
		t.Fatalf("Boot error: %v", err)
	}
	t.Cleanup(func() { _ = h.orch.Shutdown(context.Background()) })

	m := h.orch.Manager()
	if m.Mode() != wifi.ModeSTA || m.State() != wifi.Configured {
		t.Fatalf("mode/state = %v/%v, want STA/CONFIGURED", m.Mode(), m.State())
	}
	if h.radio.STA().SSID != "home" {
		t.Fatalf("STA SSID = %q, want home", h.radio.STA().SSID)
	}

	hresp, err := http.Get(serverURL(t, h.orch, "/health"))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health models.HealthResponse
	err = json.NewDecoder(hresp.Body).Decode(&health)
	hresp.Body.Close()
	if err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Mode != "STA" || health.SSID != "home" {
		t.Fatalf("health = %+v, want STA on home", health)
	}

	resp, err := http.Post(serverURL(t, h.orch, "/api/login"), "application/json",
		strings.NewReader(`{"username":"admin","password":"password123"}`))
	if err != nil {
		t.Fatalf("POST /api/login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
}

func TestStorageFailureSkipsLaterPhases(t *testing.T) {
	h := newHarness(t, nil, errors.New("flash unavailable"))

	err := h.orch.Boot(context.Background())
	if err == nil {
		t.Fatalf("Boot expected error")
	}
	if !strings.Contains(err.Error(), "storage") {
		t.Fatalf("error = %v, want it to name the storage phase", err)
	}
	if p, failed := h.orch.Failed(); !failed || p != PhaseStorage {
		t.Fatalf("Failed() = %v/%v, want storage", p, failed)
	}
	if len(h.orch.Completed()) != 0 {
		t.Fatalf("completed = %v, want none", h.orch.Completed())
	}
	if h.disp.Current() != display.ScreenNone {
		t.Fatalf("display touched after storage failure")
	}
	if len(h.radio.Calls()) != 0 {
		t.Fatalf("radio touched after storage failure: %v", h.radio.Calls())
	}
	if h.orch.ServerAddr() != "" {
		t.Fatalf("server started after storage failure")
	}
	if err := h.orch.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
}

func TestFilesystemFailureStopsAfterStorage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	h := newHarness(t, func(c *config.Config) { c.WebRoot = file }, nil)

	if err := h.orch.Boot(context.Background()); err == nil {
		t.Fatalf("Boot expected error")
	}
	if p, _ := h.orch.Failed(); p != PhaseFilesystem {
		t.Fatalf("failed phase = %v, want filesystem", p)
	}
	if got := h.orch.Completed(); len(got) != 1 || got[0] != PhaseStorage {
		t.Fatalf("completed = %v, want [storage]", got)
	}
}

func TestNetworkFailureLeavesNoServer(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.radio.FailOn("start", errors.New("radio fault"))

	if err := h.orch.Boot(context.Background()); err == nil {
		t.Fatalf("Boot expected error")
	}
	if p, _ := h.orch.Failed(); p != PhaseNetwork {
		t.Fatalf("failed phase = %v, want network", p)
	}
	if h.orch.ServerAddr() != "" {
		t.Fatalf("server started after network failure")
	}
}

func TestPostReportsFullQueue(t *testing.T) {
	h := newHarness(t, nil, nil)

	for i := 0; i < eventQueueDepth; i++ {
		if err := h.orch.Post(Event{Kind: EventNoop}); err != nil {
			t.Fatalf("Post %d: %v", i, err)
		}
	}
	if err := h.orch.Post(Event{Kind: EventNoop}); !errors.Is(err, apperr.ErrQueueFull) {
		t.Fatalf("Post on full queue = %v, want ErrQueueFull", err)
	}
}

func TestPhaseNames(t *testing.T) {
	t.Parallel()

	if PhaseHTTPServer.String() != "http_server" {
		t.Fatalf("PhaseHTTPServer = %q", PhaseHTTPServer.String())
	}
	if Phase(42).String() != "Phase(42)" {
		t.Fatalf("unknown phase = %q", Phase(42).String())
	}
}

func TestOpenDatabaseStoreMemory(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreBackend = "memory"

	store, db, err := OpenDatabaseStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenDatabaseStore error: %v", err)
	}
	defer db.Close()

	if err := wifi.SaveCredentials(context.Background(), store, wifi.Credentials{SSID: "home"}); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
}

func TestLoginLimiterFollowsBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	o := New(Options{Config: func() *config.Config {
		c := config.Defaults()
		c.RateLimitBackend = "redis"
		return c
	}()})
	o.db = &database.DB{Redis: rdb}
	if _, ok := o.loginLimiter().(*session.RedisLimiter); !ok {
		t.Fatalf("limiter = %T, want *session.RedisLimiter", o.loginLimiter())
	}

	o.db = &database.DB{}
	if _, ok := o.loginLimiter().(*session.WindowLimiter); !ok {
		t.Fatalf("limiter = %T, want *session.WindowLimiter without redis", o.loginLimiter())
	}
}
