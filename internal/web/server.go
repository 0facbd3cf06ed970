package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OliverMao/kvm-manager/internal/iso"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are the page templates, each rendered inside layout.html.
var pages = []string{"index.html", "create.html", "network.html"}

// Options configures the HTTP handlers.
type Options struct {
	// NoticeLimit is how many trailing characters of stdout the notice keeps.
	NoticeLimit int
	// DefaultISO pre-fills the create form.
	DefaultISO string
	// Network is the libvirt network shown on the network page.
	Network string
	// ProbeTimeout bounds each libvirt probe.
	ProbeTimeout time.Duration
	// MetricsPath serves Prometheus metrics. Empty disables the endpoint.
	MetricsPath string
	// Gatherer backs the metrics endpoint. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	// Username and PasswordHash enable basic auth when Username is set.
	Username     string
	PasswordHash string
}

// Server holds the handlers' dependencies.
type Server struct {
	opts    Options
	mgr     vmManager
	isos    isoLister
	prober  hostProber
	checker scriptChecker
	tmpl    map[string]*template.Template
}

// NewServer creates a Server. catalog and prober may be nil; a nil prober
// hides the libvirt status panel and skips the libvirt readiness check.
func NewServer(opts Options, mgr *vm.Manager, runner *script.Runner, catalog *iso.Catalog, prober *libvirt.Prober) (*Server, error) {
	var isos isoLister
	if catalog != nil {
		isos = catalog
	}
	var hp hostProber
	if prober != nil {
		hp = prober
	}
	return newServerWithDeps(opts, mgr, isos, hp, runner)
}

// newServerWithDeps creates a Server with injected dependencies.
// This allows for testing by accepting interfaces instead of concrete types.
func newServerWithDeps(opts Options, mgr vmManager, isos isoLister, prober hostProber, checker scriptChecker) (*Server, error) {
	if opts.NoticeLimit == 0 {
		opts.NoticeLimit = 500
	}
	if opts.DefaultISO == "" {
		opts.DefaultISO = vm.DefaultISO
	}
	if opts.Network == "" {
		opts.Network = "nat1"
	}
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		opts:    opts,
		mgr:     mgr,
		isos:    isos,
		prober:  prober,
		checker: checker,
		tmpl:    tmpl,
	}, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/create", s.handleCreateForm).Methods(http.MethodGet)
	r.HandleFunc("/create", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/network", s.handleNetworkPage).Methods(http.MethodGet)
	r.HandleFunc("/network", s.handleNetworkAction).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/api/vms", s.handleAPIVMs).Methods(http.MethodGet)
	if s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.Use(requestID, accessLog)
	if s.opts.Username != "" {
		r.Use(basicAuth(s.opts.Username, s.opts.PasswordHash, map[string]bool{
			"/healthz": true,
			"/readyz":  true,
		}))
	}

	return r
}
