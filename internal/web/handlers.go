package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/OliverMao/kvm-manager/internal/iso"
	"github.com/OliverMao/kvm-manager/internal/libvirt"
	"github.com/OliverMao/kvm-manager/internal/listing"
	"github.com/OliverMao/kvm-manager/internal/logging"
	"github.com/OliverMao/kvm-manager/internal/script"
	"github.com/OliverMao/kvm-manager/internal/status"
	"github.com/OliverMao/kvm-manager/internal/vm"
)

type button struct {
	Action  vm.Action
	Label   string
	Class   string
	Enabled bool
	Confirm string
}

type row struct {
	Name    string
	State   string
	Buttons []button
}

type indexData struct {
	Page
	Rows    []row
	VNC     []string
	Error   string
	Warning string
}

type createData struct {
	Page
	Spec vm.CreateSpec
	ISOs []iso.Image
}

type networkAction struct {
	Action  vm.NetworkAction
	Label   string
	Class   string
	Confirm string
}

type networkData struct {
	Page
	Actions  []networkAction
	Network  string
	Host     *libvirt.HostStatus
	ProbeErr string
}

var buttonStyles = map[vm.Action]struct{ label, class string }{
	vm.ActionStart:    {"Start", "btn-success"},
	vm.ActionShutdown: {"Shut down", "btn-secondary"},
	vm.ActionSuspend:  {"Suspend", "btn-warning"},
	vm.ActionResume:   {"Resume", "btn-info"},
	vm.ActionDelete:   {"Delete", "btn-danger"},
	vm.ActionExport:   {"Export ISO", "btn-outline-primary"},
}

var networkActions = []networkAction{
	{Action: vm.NetworkInit, Label: "Initialize", Class: "btn-primary"},
	{Action: vm.NetworkStart, Label: "Start", Class: "btn-success"},
	{Action: vm.NetworkList, Label: "List networks", Class: "btn-secondary"},
	{Action: vm.NetworkDelete, Label: "Delete", Class: "btn-danger", Confirm: "Delete the network definition?"},
}

func rows(vms []listing.VM) []row {
	out := make([]row, 0, len(vms))
	for _, v := range vms {
		r := row{Name: v.Name, State: v.State}
		for _, a := range vm.Actions {
			style := buttonStyles[a]
			b := button{
				Action:  a,
				Label:   style.label,
				Class:   style.class,
				Enabled: status.Allowed(v.State, a),
			}
			if a == vm.ActionDelete {
				b.Confirm = fmt.Sprintf("Delete %s and its disks?", v.Name)
			}
			r.Buttons = append(r.Buttons, b)
		}
		out = append(out, r)
	}
	return out
}

func (s *Server) page(w http.ResponseWriter, r *http.Request, title, tab string) Page {
	return Page{Title: title, Tab: tab, Notice: popNotice(w, r)}
}

// handleIndex renders the VM list.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := indexData{Page: s.page(w, r, "Virtual machines", "vms")}

	l, res, err := s.mgr.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list VMs", "error", err)
		data.Error = err.Error()
		s.render(w, r, http.StatusInternalServerError, "index.html", data)
		return
	}

	data.Rows = rows(l.VMs)
	data.VNC = l.VNC
	if res.Failed() {
		data.Warning = listWarning(res)
	}

	s.render(w, r, http.StatusOK, "index.html", data)
}

func listWarning(res *script.Result) string {
	if res.TimedOut {
		return "Listing timed out; the table may be incomplete."
	}
	msg := fmt.Sprintf("Listing exited with code %d.", res.ExitCode)
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		msg += " " + Tail(stderr, stderrLimit)
	}
	return msg
}

// handleAction runs a VM lifecycle action and redirects to the list.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := r.PostForm.Get("vm_name")
	raw := r.PostForm.Get("action")

	action, err := vm.ParseAction(raw)
	if err != nil {
		s.notify(w, r, Notice{Text: fmt.Sprintf("Unknown action %q; nothing was run.", raw), Error: true})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	res, err := s.mgr.Do(r.Context(), action, name)
	s.notifyRun(w, r, res, err, "action", string(action), "vm", name)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleCreateForm renders the creation form.
func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	data := createData{
		Page: s.page(w, r, "Create VM", "vms"),
		Spec: vm.DefaultCreateSpec(s.opts.DefaultISO),
	}

	if s.isos != nil {
		images, err := s.isos.List()
		if err != nil {
			logging.FromContext(r.Context()).Warn("failed to list ISO images", "error", err)
		}
		data.ISOs = images
	}

	s.render(w, r, http.StatusOK, "create.html", data)
}

// handleCreate runs the creation dialog and redirects to the list.
// Defaults apply only to fields missing from the form; a submitted empty
// value is passed through.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	def := vm.DefaultCreateSpec(s.opts.DefaultISO)
	f := r.PostForm
	spec := vm.CreateSpec{
		Name:        formValue(f, "name", ""),
		CPU:         formValue(f, "cpu", def.CPU),
		RAM:         formValue(f, "ram", def.RAM),
		Disk:        formValue(f, "disk", def.Disk),
		IP:          formValue(f, "ip", ""),
		ISO:         formValue(f, "iso", def.ISO),
		OSVariant:   formValue(f, "os_variant", ""),
		AutoInstall: formValue(f, "auto_install", def.AutoInstall),
	}

	res, err := s.mgr.Create(r.Context(), spec)
	s.notifyRun(w, r, res, err, "action", "create", "vm", spec.Name)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formValue returns the first value for key, or def when the key is absent.
func formValue(f url.Values, key, def string) string {
	if v, ok := f[key]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

// handleNetworkPage renders the network buttons and, when libvirt is
// configured, the network's current definition.
func (s *Server) handleNetworkPage(w http.ResponseWriter, r *http.Request) {
	data := networkData{
		Page:    s.page(w, r, "Network", "network"),
		Actions: networkActions,
		Network: s.opts.Network,
	}

	if s.prober != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.ProbeTimeout)
		defer cancel()

		hs, err := s.prober.Probe(ctx, s.opts.Network)
		if err != nil {
			logging.FromContext(r.Context()).Warn("libvirt probe failed", "error", err)
			data.ProbeErr = err.Error()
		}
		data.Host = hs
	}

	s.render(w, r, http.StatusOK, "network.html", data)
}

// handleNetworkAction runs a network action and redirects to the network
// page.
func (s *Server) handleNetworkAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	raw := r.PostForm.Get("action")
	action, err := vm.ParseNetworkAction(raw)
	if err != nil {
		s.notify(w, r, Notice{Text: fmt.Sprintf("Unknown network action %q; nothing was run.", raw), Error: true})
		http.Redirect(w, r, "/network", http.StatusSeeOther)
		return
	}

	res, err := s.mgr.DoNetwork(r.Context(), action)
	s.notifyRun(w, r, res, err, "action", "network-"+string(action))
	http.Redirect(w, r, "/network", http.StatusSeeOther)
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handleReadyz reports whether the script can run and, when configured,
// whether libvirt answers.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	var report status.Report

	if s.checker != nil {
		if err := s.checker.Check(); err != nil {
			report.MarkFalse(status.ConditionScriptReady, "NotExecutable", err)
		} else {
			report.MarkTrue(status.ConditionScriptReady, "Executable")
		}
	}

	if s.prober != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.ProbeTimeout)
		defer cancel()

		if _, err := s.prober.Probe(ctx, ""); err != nil {
			report.MarkFalse(status.ConditionLibvirtReady, "Unreachable", err)
		} else {
			report.MarkTrue(status.ConditionLibvirtReady, "Connected")
		}
	} else {
		report.SetCondition(status.ConditionLibvirtReady, status.ConditionUnknown, "Disabled", "libvirt probe not configured")
	}

	code := http.StatusOK
	if !report.Ready() {
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, report)
}

// handleAPIVMs returns the scraped listing as JSON.
func (s *Server) handleAPIVMs(w http.ResponseWriter, r *http.Request) {
	l, res, err := s.mgr.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list VMs", "error", err)
		respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, struct {
		listing.Listing
		ExitCode int `json:"exitCode"`
	}{Listing: l, ExitCode: res.ExitCode})
}

func (s *Server) notify(w http.ResponseWriter, r *http.Request, n Notice) {
	if err := setNotice(w, n); err != nil {
		logging.FromContext(r.Context()).Warn("failed to store notice", "error", err)
	}
}

// notifyRun stores the outcome of one script run and logs it.
func (s *Server) notifyRun(w http.ResponseWriter, r *http.Request, res *script.Result, err error, attrs ...any) {
	log := logging.FromContext(r.Context())
	switch {
	case err != nil:
		log.Error("script action failed", append(attrs, "error", err)...)
	case res.Failed():
		log.Warn("script action reported failure", append(attrs, "exit_code", res.ExitCode, "timed_out", res.TimedOut)...)
	default:
		log.Info("script action completed", attrs...)
	}

	s.notify(w, r, noticeFromRun(res, err, s.opts.NoticeLimit))
}
