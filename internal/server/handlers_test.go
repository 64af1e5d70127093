package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/wireless"
)

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("response is not JSON: %v\nbody: %s", err, body)
	}
	return m
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	t.Run("missing key is rejected", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodGet, "/status", nil, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if got := decodeBody(t, rec.Body.String())["error"]; got != "Invalid API key" {
			t.Errorf("error = %q, want %q", got, "Invalid API key")
		}
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.RemoteAddr = "192.0.2.1:54321"
		req.Header.Set("X-API-Key", "wrong-key")
		rec := httptest.NewRecorder()
		f.srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("health is open", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodGet, "/health", nil, false)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("rate limit kicks in", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.cfg.RateLimit = 3
		f.srv.limiter = newRateLimiter(3)

		for i := 0; i < 3; i++ {
			if rec := f.do(http.MethodGet, "/status", nil, true); rec.Code != http.StatusOK {
				t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
			}
		}
		rec := f.do(http.MethodGet, "/status", nil, true)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("allows up to the limit", func(t *testing.T) {
		t.Parallel()

		rl := newRateLimiter(2)
		if !rl.allow("10.0.0.1", now) || !rl.allow("10.0.0.1", now) {
			t.Fatal("first two requests should be allowed")
		}
		if rl.allow("10.0.0.1", now) {
			t.Error("third request should be denied")
		}
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		t.Parallel()

		rl := newRateLimiter(1)
		if !rl.allow("10.0.0.1", now) {
			t.Fatal("first client should be allowed")
		}
		if !rl.allow("10.0.0.2", now) {
			t.Error("second client should have its own budget")
		}
	})

	t.Run("window slides", func(t *testing.T) {
		t.Parallel()

		rl := newRateLimiter(1)
		if !rl.allow("10.0.0.1", now) {
			t.Fatal("first request should be allowed")
		}
		if rl.allow("10.0.0.1", now.Add(30*time.Second)) {
			t.Error("request inside the window should be denied")
		}
		if !rl.allow("10.0.0.1", now.Add(2*time.Minute)) {
			t.Error("request after the window should be allowed")
		}
	})

	t.Run("idle clients are swept", func(t *testing.T) {
		t.Parallel()

		rl := newRateLimiter(5)
		rl.allow("10.0.0.1", now)
		rl.allow("10.0.0.2", now.Add(90*time.Second))

		rl.mu.Lock()
		_, stale := rl.requests["10.0.0.1"]
		tracked := len(rl.requests)
		rl.mu.Unlock()

		if stale {
			t.Error("idle client entry survived the sweep")
		}
		if tracked != 1 {
			t.Errorf("tracked clients = %d, want 1", tracked)
		}
	})
}

func TestHandleScan(t *testing.T) {
	t.Parallel()

	t.Run("returns parsed networks", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodGet, "/scan", nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		body := decodeBody(t, rec.Body.String())
		if got := body["count"].(float64); got != 5 {
			t.Errorf("count = %v, want 5", got)
		}
		networks := body["networks"].([]any)
		first := networks[0].(map[string]any)
		if first["ssid"] != "HomeNet" {
			t.Errorf("strongest network = %v, want HomeNet first", first["ssid"])
		}
	})

	t.Run("missing interface is 404", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.runner.setHook(func(name string, args []string) (wireless.Result, bool) {
			if name == "ip" && len(args) > 0 && args[0] == "link" {
				return wireless.Result{ExitCode: 1, Stderr: "does not exist"}, true
			}
			return wireless.Result{}, false
		})

		rec := f.do(http.MethodGet, "/scan", nil, true)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("scan failure is 500", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.runner.setHook(func(name string, args []string) (wireless.Result, bool) {
			if name == "iw" && len(args) == 3 && args[2] == "scan" {
				return wireless.Result{ExitCode: 1, Stderr: "command failed"}, true
			}
			return wireless.Result{}, false
		})

		rec := f.do(http.MethodGet, "/scan", nil, true)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
		if got := decodeBody(t, rec.Body.String())["error"]; got != "scan failed after retries" {
			t.Errorf("error = %q", got)
		}
	})
}

func TestHandleStart(t *testing.T) {
	t.Parallel()

	t.Run("starts an attack", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodPost, "/start", strings.NewReader(`{"ssid":"HomeNet"}`), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec.Body.String())
		if body["target"] != "HomeNet" {
			t.Errorf("target = %v, want HomeNet", body["target"])
		}
		if !f.ctrl.Tracker().Running() {
			t.Error("tracker should be running after /start")
		}
	})

	t.Run("empty body is 400", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodPost, "/start", nil, true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if got := decodeBody(t, rec.Body.String())["error"]; got != "ssid required" {
			t.Errorf("error = %q, want %q", got, "ssid required")
		}
	})

	t.Run("second start is 409", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		if rec := f.do(http.MethodPost, "/start", strings.NewReader(`{"ssid":"HomeNet"}`), true); rec.Code != http.StatusOK {
			t.Fatalf("first start: status = %d", rec.Code)
		}
		rec := f.do(http.MethodPost, "/start", strings.NewReader(`{"ssid":"Other"}`), true)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
	})

	t.Run("rejected target is 400", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.ctrl.startErr = errors.New("ssid contains invalid characters")

		rec := f.do(http.MethodPost, "/start", strings.NewReader(`{"ssid":"bad;ssid"}`), true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()

	f := newTestFixture(t)
	f.ctrl.Tracker().Begin("HomeNet", time.Minute)
	f.ctrl.Tracker().StepUpdate("Capturing handshake", 40, model.PhaseCapture, 50)

	rec := f.do(http.MethodGet, "/status", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decodeBody(t, rec.Body.String())
	if body["running"] != true {
		t.Error("running = false, want true")
	}
	if body["phase"] != "capture" {
		t.Errorf("phase = %v, want capture", body["phase"])
	}
	if body["progress"].(float64) != 40 {
		t.Errorf("progress = %v, want 40", body["progress"])
	}
	if body["gpu_enabled"] != false {
		t.Error("gpu_enabled = true, want false")
	}
}

func TestHandleSimple(t *testing.T) {
	t.Parallel()

	t.Run("idle", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodGet, "/simple", nil, true)
		body := decodeBody(t, rec.Body.String())
		if body["r"].(float64) != 0 {
			t.Errorf("r = %v, want 0", body["r"])
		}
		if body["pw"] != "" {
			t.Errorf("pw = %v, want empty", body["pw"])
		}
	})

	t.Run("truncates long values", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.ctrl.Tracker().Begin("AVeryLongNetworkNameIndeed", time.Minute)

		rec := f.do(http.MethodGet, "/simple", nil, true)
		body := decodeBody(t, rec.Body.String())
		if got := body["t"].(string); len(got) != 16 {
			t.Errorf("t = %q, want 16 chars", got)
		}
	})

	t.Run("exposes passphrase once finished", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.ctrl.Tracker().Begin("HomeNet", time.Minute)
		f.ctrl.Tracker().Finish("hunter22", "Key found")

		rec := f.do(http.MethodGet, "/simple", nil, true)
		body := decodeBody(t, rec.Body.String())
		if body["pw"] != "hunter22" {
			t.Errorf("pw = %v, want hunter22", body["pw"])
		}
	})
}

func TestHandleResults(t *testing.T) {
	t.Parallel()

	t.Run("refuses while running", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.ctrl.Tracker().Begin("HomeNet", time.Minute)

		rec := f.do(http.MethodGet, "/results", nil, true)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
	})

	t.Run("returns the outcome", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.ctrl.Tracker().Begin("HomeNet", time.Minute)
		f.ctrl.Tracker().Finish("hunter22", "Key found")

		rec := f.do(http.MethodGet, "/results", nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := decodeBody(t, rec.Body.String())
		if body["result"] != "hunter22" {
			t.Errorf("result = %v, want hunter22", body["result"])
		}
		if body["target"] != "HomeNet" {
			t.Errorf("target = %v, want HomeNet", body["target"])
		}
	})
}

func TestHandleCancel(t *testing.T) {
	t.Parallel()

	t.Run("no attack running", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodPost, "/cancel", nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := decodeBody(t, rec.Body.String())["message"]; got != "No attack running" {
			t.Errorf("message = %q", got)
		}
		if f.ctrl.stopCount() != 0 {
			t.Error("Stop() called with no attack running")
		}
	})

	t.Run("cancels a running attack", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.ctrl.Tracker().Begin("HomeNet", time.Minute)

		rec := f.do(http.MethodPost, "/cancel", nil, true)
		if got := decodeBody(t, rec.Body.String())["message"]; got != "Attack cancelled" {
			t.Errorf("message = %q", got)
		}
		if f.ctrl.stopCount() != 1 {
			t.Errorf("Stop() called %d times, want 1", f.ctrl.stopCount())
		}
	})
}

func TestHandleCrackResult(t *testing.T) {
	t.Parallel()

	t.Run("terminal result reaches the tracker", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		payload := `{"target":"HomeNet","password":"hunter22","status":"completed","cracked_by":"gpu-rig"}`
		rec := f.do(http.MethodPost, "/crack_result", strings.NewReader(payload), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		res, ok := f.ctrl.Tracker().AwaitGPUResult(t.Context(), 100*time.Millisecond)
		if !ok {
			t.Fatal("no result delivered to the tracker")
		}
		if res.Password != "hunter22" {
			t.Errorf("password = %q, want hunter22", res.Password)
		}
	})

	t.Run("intermediate status is not delivered", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		payload := `{"target":"HomeNet","status":"cracking"}`
		rec := f.do(http.MethodPost, "/crack_result", strings.NewReader(payload), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		if _, ok := f.ctrl.Tracker().AwaitGPUResult(t.Context(), 50*time.Millisecond); ok {
			t.Error("intermediate status should not wake the worker")
		}
	})

	t.Run("invalid body is 400", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodPost, "/crack_result", strings.NewReader("not json"), true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleFiles(t *testing.T) {
	t.Parallel()

	f := newTestFixture(t)
	if _, err := f.store.SaveUpload("handshake.cap", strings.NewReader("data")); err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}

	rec := f.do(http.MethodGet, "/files", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec.Body.String())
	if got := body["total"].(float64); got != 1 {
		t.Errorf("total = %v, want 1", got)
	}
}

func TestHandleTransferToGPU(t *testing.T) {
	t.Parallel()

	t.Run("no captures is 404", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		rec := f.do(http.MethodPost, "/transfer_to_gpu", strings.NewReader(`{}`), true)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("offload not configured is 400", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		if _, err := f.store.SaveUpload("handshake.cap", strings.NewReader("data")); err != nil {
			t.Fatalf("SaveUpload: %v", err)
		}

		rec := f.do(http.MethodPost, "/transfer_to_gpu", strings.NewReader(`{}`), true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if got := decodeBody(t, rec.Body.String())["error"]; got != "GPU offload not configured" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("transfers through the offloader", func(t *testing.T) {
		t.Parallel()

		f := newTestFixture(t)
		f.cfg.GPU.Enabled = true
		f.cfg.GPU.Host = "gpu-rig"
		f.cfg.GPU.IncomingDir = "/srv/incoming"

		off := &recordingOffloader{}
		f.srv.offloader = off

		if _, err := f.store.SaveUpload("HomeNet.cap", strings.NewReader("data")); err != nil {
			t.Fatalf("SaveUpload: %v", err)
		}

		rec := f.do(http.MethodPost, "/transfer_to_gpu", strings.NewReader(`{}`), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if off.target != "HomeNet" {
			t.Errorf("offload target = %q, want HomeNet", off.target)
		}
	})
}

// recordingOffloader captures the last Offload call.
type recordingOffloader struct {
	capFile string
	target  string
	err     error
}

func (o *recordingOffloader) Offload(_ context.Context, capFile, target string) error {
	o.capFile = capFile
	o.target = target
	return o.err
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	f := newTestFixture(t)
	rec := f.do(http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decodeBody(t, rec.Body.String())
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
	if body["attack_running"] != false {
		t.Error("attack_running = true, want false")
	}
	ifaces := body["interfaces"].(map[string]any)
	if ifaces["scan"] != "wlan0" || ifaces["monitor"] != "wlan1" {
		t.Errorf("interfaces = %v", ifaces)
	}
}

func TestHandleConfig(t *testing.T) {
	t.Parallel()

	f := newTestFixture(t)
	rec := f.do(http.MethodGet, "/config", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decodeBody(t, rec.Body.String())
	if got := body["attack_timeout"].(float64); got != 900 {
		t.Errorf("attack_timeout = %v, want 900", got)
	}
	if _, ok := body["api_key"]; ok {
		t.Error("config response must not leak the API key")
	}
}
