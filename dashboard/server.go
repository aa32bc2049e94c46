package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"keepaway/server/fastview"
)

// Dashboard serves a single realtime page showing learner telemetry over a
// websocket, built on the same client/view-builder machinery the training
// visualizer uses, just fed learner Snapshots instead of grid cells.
type Dashboard struct {
	addr      string
	numAgents int
	view      fastview.ViewComponent
}

// NewDashboard wires a Dashboard to the given snapshot stream. numAgents
// seeds the initial per-agent rows the page renders before any websocket
// update arrives. The view itself is assembled through fastview.ViewBuilder
// rather than constructed directly, so a second telemetry view (e.g. a
// per-agent detail page) could later be added as another WithView call
// sharing the same snapshot-derived view-model stream.
func NewDashboard(ctx context.Context, addr string, numAgents int, snapshots <-chan Snapshot) (*Dashboard, error) {
	views, err := fastview.NewViewBuilder[Snapshot, Snapshot]().
		WithContext(ctx).
		WithModel(snapshots, identitySnapshot).
		WithView(func(done <-chan struct{}, vm <-chan Snapshot) fastview.ViewComponent {
			return NewTelemetryView(done, vm)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("dashboard view: %w", err)
	}

	return &Dashboard{
		addr:      addr,
		numAgents: numAgents,
		view:      views[0],
	}, nil
}

func identitySnapshot(s Snapshot) Snapshot { return s }

// Serve starts the http server; it blocks until the listener fails.
func (d *Dashboard) Serve() error {
	router := mux.NewRouter()
	router.HandleFunc("/", d.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", d.serveWebsocket)

	if err := http.ListenAndServe(d.addr, router); err != nil {
		return fmt.Errorf("dashboard serve: %w", err)
	}
	return nil
}

func (d *Dashboard) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	agentRows := make([]struct{}, d.numAgents)
	if err := renderTemplate(w, d.view, agentRows); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

func (d *Dashboard) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(d.view.Updates(), w, r)
	if err != nil {
		return
	}
	if err := cli.Sync(); err != nil {
		log.Println("dashboard client disconnected:", err)
	}
}

func renderTemplate(w io.Writer, vc fastview.ViewComponent, data interface{}) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	err = t.Execute(w, data)
	return
}
