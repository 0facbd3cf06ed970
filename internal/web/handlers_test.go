package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/OliverMao/kvm-manager/internal/iso"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

func newTestHandler(t *testing.T, mgr vmManager, opts Options, isos isoLister, prober hostProber, checker scriptChecker) http.Handler {
	t.Helper()

	srv, err := newServerWithDeps(opts, mgr, isos, prober, checker)
	require.NoError(t, err)
	return srv.Handler()
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// noticeFrom decodes the notice cookie set on a response.
func noticeFrom(t *testing.T, rr *httptest.ResponseRecorder) *Notice {
	t.Helper()

	for _, c := range rr.Result().Cookies() {
		if c.Name == noticeCookie && c.MaxAge >= 0 {
			n, err := decodeNotice(c.Value)
			require.NoError(t, err)
			return n
		}
	}
	t.Fatal("response did not set a notice")
	return nil
}

func noticeCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == noticeCookie {
			return c
		}
	}
	return nil
}

func TestIndex_RendersTableAndVNC(t *testing.T) {
	mgr := newMockManager()
	mgr.listFunc = func(ctx context.Context) (listing.Listing, *script.Result, error) {
		return listing.Listing{
			VMs: []listing.VM{
				{Name: "web01", State: "running"},
				{Name: "web02", State: "paused"},
			},
			VNC: []string{"web01: 0.0.0.0:5900", "web02: 0.0.0.0:5901"},
		}, &script.Result{}, nil
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := get(h, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, body, "web01")
	assert.Contains(t, body, "web02")
	assert.Contains(t, body, "VNC connection info")
	assert.Contains(t, body, "web01: 0.0.0.0:5900\nweb02: 0.0.0.0:5901")

	// Running VM: start disabled, shutdown enabled
	assert.Contains(t, body, `value="start" class="btn btn-sm btn-success" disabled`)
	assert.Contains(t, body, `value="shutdown" class="btn btn-sm btn-secondary">`)
	// Paused VM: start and resume enabled
	assert.Contains(t, body, `value="start" class="btn btn-sm btn-success">`)
	assert.Contains(t, body, `value="resume" class="btn btn-sm btn-info">`)
	assert.Equal(t, 1, mgr.listCalls)
}

func TestIndex_EmptyListing(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)
	rr := get(h, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No virtual machines found.")
	assert.NotContains(t, rr.Body.String(), "VNC connection info")
}

func TestIndex_ListError(t *testing.T) {
	mgr := newMockManager()
	mgr.listFunc = func(ctx context.Context) (listing.Listing, *script.Result, error) {
		return listing.Listing{}, nil, errors.New("failed to list VMs: script not found")
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := get(h, "/")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "script not found")
}

func TestIndex_ListNonZeroExit(t *testing.T) {
	mgr := newMockManager()
	mgr.listFunc = func(ctx context.Context) (listing.Listing, *script.Result, error) {
		return listing.Parse(""), &script.Result{ExitCode: 1, Stderr: "virsh: command not found\n"}, nil
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := get(h, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Listing exited with code 1.")
	assert.Contains(t, rr.Body.String(), "virsh: command not found")
}

func TestIndex_Idempotent(t *testing.T) {
	mgr := newMockManager()
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	first := get(h, "/")
	second := get(h, "/")

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 2, mgr.listCalls)
	assert.Empty(t, mgr.doCalls)
}

func TestAction_DeleteRedirects(t *testing.T) {
	mgr := newMockManager()
	mgr.doFunc = func(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
		return &script.Result{Stdout: "Domain testvm has been undefined\n"}, nil
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := postForm(h, "/", url.Values{"vm_name": {"testvm"}, "action": {"delete"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	require.Len(t, mgr.doCalls, 1)
	assert.Equal(t, doCall{action: vm.ActionDelete, name: "testvm"}, mgr.doCalls[0])

	n := noticeFrom(t, rr)
	assert.Equal(t, "Domain testvm has been undefined\n", n.Text)
	assert.False(t, n.Error)
}

func TestAction_AllActions(t *testing.T) {
	for _, a := range vm.Actions {
		t.Run(string(a), func(t *testing.T) {
			mgr := newMockManager()
			h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

			rr := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {string(a)}})

			assert.Equal(t, http.StatusSeeOther, rr.Code)
			require.Len(t, mgr.doCalls, 1)
			assert.Equal(t, a, mgr.doCalls[0].action)
		})
	}
}

func TestAction_Unknown(t *testing.T) {
	mgr := newMockManager()
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	rr := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {"reboot"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Empty(t, mgr.doCalls)

	n := noticeFrom(t, rr)
	assert.True(t, n.Error)
	assert.Contains(t, n.Text, `Unknown action "reboot"`)
}

func TestAction_NoticeKeepsTail(t *testing.T) {
	stdout := strings.Repeat("a", 100) + strings.Repeat("b", 500)
	mgr := newMockManager()
	mgr.doFunc = func(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
		return &script.Result{Stdout: stdout}, nil
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {"start"}})

	n := noticeFrom(t, rr)
	assert.Equal(t, strings.Repeat("b", 500), n.Text)
}

func TestAction_NonZeroExit(t *testing.T) {
	mgr := newMockManager()
	mgr.doFunc = func(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
		return &script.Result{Stdout: "trying\n", Stderr: "error: domain is not running\n", ExitCode: 2}, nil
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {"shutdown"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	n := noticeFrom(t, rr)
	assert.Equal(t, "trying\n", n.Text)
	assert.Equal(t, 2, n.ExitCode)
	assert.Equal(t, "error: domain is not running", n.Stderr)
	assert.True(t, n.Error)
}

func TestAction_RunError(t *testing.T) {
	mgr := newMockManager()
	mgr.doFunc = func(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
		return nil, script.ErrNotFound
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {"start"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	n := noticeFrom(t, rr)
	assert.True(t, n.Error)
	assert.Contains(t, n.Text, "script not found")
}

func TestNotice_ShownOnceThenCleared(t *testing.T) {
	mgr := newMockManager()
	mgr.doFunc = func(ctx context.Context, action vm.Action, name string) (*script.Result, error) {
		return &script.Result{Stdout: "vm1 started"}, nil
	}
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	post := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {"start"}})
	cookie := noticeCookieFrom(post)
	require.NotNil(t, cookie)

	page := get(h, "/", cookie)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "vm1 started")

	cleared := noticeCookieFrom(page)
	require.NotNil(t, cleared, "page should clear the notice cookie")
	assert.Less(t, cleared.MaxAge, 0)

	// Without the cookie the notice is gone
	again := get(h, "/")
	assert.NotContains(t, again.Body.String(), "vm1 started")
}

func TestNotice_GarbageCookieIgnored(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)

	rr := get(h, "/", &http.Cookie{Name: noticeCookie, Value: "!!not-base64!!"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `role="alert"`)
}

func TestCreateForm(t *testing.T) {
	isos := &mockISOs{images: []iso.Image{
		{Name: "debian-12.iso", Label: "Debian 12"},
		{Name: "ubuntu-22.04.iso"},
	}}

	h := newTestHandler(t, newMockManager(), Options{DefaultISO: "debian-12.iso"}, isos, nil, nil)
	rr := get(h, "/create")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `<option value="debian-12.iso">Debian 12</option>`)
	assert.Contains(t, body, `<option value="ubuntu-22.04.iso">`)
	assert.Contains(t, body, `name="iso" list="iso-images" value="debian-12.iso"`)
	assert.Contains(t, body, `name="cpu" type="number" min="1" value="1"`)
}

func TestCreateForm_CatalogError(t *testing.T) {
	isos := &mockISOs{err: errors.New("permission denied")}

	h := newTestHandler(t, newMockManager(), Options{}, isos, nil, nil)
	rr := get(h, "/create")

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreate_DefaultsForMissingFields(t *testing.T) {
	mgr := newMockManager()
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	rr := postForm(h, "/create", url.Values{"name": {"web03"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	require.Len(t, mgr.createCalls, 1)
	assert.Equal(t, vm.CreateSpec{
		Name:        "web03",
		CPU:         "1",
		RAM:         "1024",
		Disk:        "5",
		IP:          "",
		ISO:         "ubuntu-20.04.6-live-server-amd64.iso",
		OSVariant:   "",
		AutoInstall: "n",
	}, mgr.createCalls[0])
}

func TestCreate_SubmittedValuesPassedThrough(t *testing.T) {
	mgr := newMockManager()
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	rr := postForm(h, "/create", url.Values{
		"name":         {"web04"},
		"cpu":          {""},
		"ram":          {"4096"},
		"disk":         {"40"},
		"ip":           {"192.168.100.14"},
		"iso":          {"debian-12.iso"},
		"os_variant":   {"debian12"},
		"auto_install": {"y"},
	})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	require.Len(t, mgr.createCalls, 1)
	spec := mgr.createCalls[0]
	assert.Equal(t, "", spec.CPU, "a present but empty field is not defaulted")
	assert.Equal(t, "4096", spec.RAM)
	assert.Equal(t, "debian-12.iso", spec.ISO)
	assert.Equal(t, "y", spec.AutoInstall)
}

func TestCreate_InvalidFieldNotice(t *testing.T) {
	mgr := newMockManager()
	mgr.createFunc = func(ctx context.Context, spec vm.CreateSpec) (*script.Result, error) {
		return nil, vm.ErrInvalidField
	}
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	rr := postForm(h, "/create", url.Values{"name": {"a\nb"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.True(t, noticeFrom(t, rr).Error)
}

func TestNetworkAction(t *testing.T) {
	for _, a := range vm.NetworkActions {
		t.Run(string(a), func(t *testing.T) {
			mgr := newMockManager()
			h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

			rr := postForm(h, "/network", url.Values{"action": {string(a)}})

			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, "/network", rr.Header().Get("Location"))
			assert.Equal(t, []vm.NetworkAction{a}, mgr.networkCalls)
		})
	}
}

func TestNetworkAction_Unknown(t *testing.T) {
	mgr := newMockManager()
	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)

	rr := postForm(h, "/network", url.Values{"action": {"stop"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/network", rr.Header().Get("Location"))
	assert.Empty(t, mgr.networkCalls)
	assert.Contains(t, noticeFrom(t, rr).Text, "Unknown network action")
}

func TestNetworkPage(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)
	rr := get(h, "/network")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, a := range vm.NetworkActions {
		assert.Contains(t, body, `value="`+string(a)+`"`)
	}
	assert.NotContains(t, body, "libvirt")
}

func TestNetworkPage_WithProbe(t *testing.T) {
	prober := &mockProber{status: &libvirt.HostStatus{
		Version: "9.7.0",
		Network: &libvirt.NetworkInfo{
			Name:        "nat1",
			Active:      true,
			ForwardMode: "nat",
			Bridge:      "virbr1",
			Addresses:   []libvirt.NetworkAddress{{Address: "192.168.100.1", Prefix: 24}},
		},
	}}

	h := newTestHandler(t, newMockManager(), Options{}, nil, prober, nil)
	rr := get(h, "/network")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "libvirt 9.7.0")
	assert.Contains(t, body, "virbr1")
	assert.Contains(t, body, "192.168.100.1/24")
	assert.Contains(t, body, "active")
	assert.Equal(t, []string{"nat1"}, prober.networks)
}

func TestNetworkPage_ProbeError(t *testing.T) {
	prober := &mockProber{err: errors.New("dial unix: connection refused")}

	h := newTestHandler(t, newMockManager(), Options{}, nil, prober, nil)
	rr := get(h, "/network")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "libvirt is not reachable: dial unix: connection refused")
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)
	rr := get(h, "/healthz")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name     string
		checker  scriptChecker
		prober   hostProber
		wantCode int
	}{
		{
			name:     "script ok, libvirt disabled",
			checker:  &mockChecker{},
			wantCode: http.StatusOK,
		},
		{
			name:     "script missing",
			checker:  &mockChecker{err: script.ErrNotFound},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "libvirt reachable",
			checker:  &mockChecker{},
			prober:   &mockProber{status: &libvirt.HostStatus{Version: "9.7.0"}},
			wantCode: http.StatusOK,
		},
		{
			name:     "libvirt unreachable",
			checker:  &mockChecker{},
			prober:   &mockProber{err: errors.New("connection refused")},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, newMockManager(), Options{}, nil, tt.prober, tt.checker)
			rr := get(h, "/readyz")

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var report struct {
				Conditions []struct {
					Type   string `json:"type"`
					Status string `json:"status"`
				} `json:"conditions"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
			assert.Len(t, report.Conditions, 2)
		})
	}
}

func TestAPIVMs(t *testing.T) {
	mgr := newMockManager()
	mgr.listFunc = func(ctx context.Context) (listing.Listing, *script.Result, error) {
		return listing.Listing{
			VMs: []listing.VM{{Name: "web01", State: "running"}},
			VNC: []string{},
		}, &script.Result{}, nil
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := get(h, "/api/vms")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"vms":[{"name":"web01","state":"running"}],"vnc":[],"exitCode":0}`, rr.Body.String())
}

func TestAPIVMs_Error(t *testing.T) {
	mgr := newMockManager()
	mgr.listFunc = func(ctx context.Context) (listing.Listing, *script.Result, error) {
		return listing.Listing{}, nil, errors.New("boom")
	}

	h := newTestHandler(t, mgr, Options{}, nil, nil, nil)
	rr := get(h, "/api/vms")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_metric_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := newTestHandler(t, newMockManager(), Options{MetricsPath: "/metrics", Gatherer: reg}, nil, nil, nil)
	rr := get(h, "/metrics")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test_metric_total 1")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)
	rr := get(h, "/metrics")

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t, newMockManager(), Options{}, nil, nil, nil)

	rr := get(h, "/healthz")
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	mgr := newMockManager()
	h := newTestHandler(t, mgr, Options{Username: "admin", PasswordHash: string(hash)}, nil, nil, nil)

	tests := []struct {
		name       string
		path       string
		user, pass string
		wantCode   int
	}{
		{name: "no credentials", path: "/", wantCode: http.StatusUnauthorized},
		{name: "wrong password", path: "/", user: "admin", pass: "nope", wantCode: http.StatusUnauthorized},
		{name: "wrong user", path: "/", user: "root", pass: "s3cret", wantCode: http.StatusUnauthorized},
		{name: "valid", path: "/", user: "admin", pass: "s3cret", wantCode: http.StatusOK},
		{name: "healthz exempt", path: "/healthz", wantCode: http.StatusOK},
		{name: "readyz exempt", path: "/readyz", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}

	// Rejected requests never reach the script
	rr := postForm(h, "/", url.Values{"vm_name": {"vm1"}, "action": {"delete"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, mgr.doCalls)
}
