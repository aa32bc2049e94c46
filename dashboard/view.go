package dashboard

import (
	"fmt"
	"html/template"

	channerics "github.com/niceyeti/channerics/channels"

	"keepaway/server/fastview"
)

// TelemetryView renders a Snapshot stream as a set of live-updating scalar
// fields and per-agent machine-state labels.
type TelemetryView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

// NewTelemetryView builds a view over a snapshot stream, converting each
// incoming Snapshot into the element updates needed to bring the page
// in sync.
func NewTelemetryView(done <-chan struct{}, snapshots <-chan Snapshot) *TelemetryView {
	tv := &TelemetryView{id: "telemetry"}
	tv.updates = channerics.Convert(done, snapshots, tv.onUpdate)
	return tv
}

// Updates returns the view's ele-update channel.
func (tv *TelemetryView) Updates() <-chan []fastview.EleUpdate {
	return tv.updates
}

func (tv *TelemetryView) onUpdate(snap Snapshot) (ops []fastview.EleUpdate) {
	ops = append(ops,
		textUpdate("episode-count", fmt.Sprintf("%d", snap.EpisodeCount)),
		textUpdate("tick", fmt.Sprintf("%d", snap.Tick)),
		textUpdate("last-q", fmt.Sprintf("%.4f", snap.LastQValue)),
		textUpdate("weight-norm", fmt.Sprintf("%.2f", snap.WeightNorm)),
		textUpdate("trace-size", fmt.Sprintf("%d", snap.NumNonzero)),
		textUpdate("min-trace", fmt.Sprintf("%.4f", snap.MinimumTrace)),
	)

	for i, label := range snap.MachineLabels {
		ops = append(ops, textUpdate(fmt.Sprintf("agent-%d-label", i), label))
	}
	for i, k := range snap.Cardinalities {
		ops = append(ops, textUpdate(fmt.Sprintf("agent-%d-choices", i), fmt.Sprintf("%d", k)))
	}
	return
}

func textUpdate(eleId, value string) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: eleId,
		Ops:   []fastview.Op{{Key: "textContent", Value: value}},
	}
}

// Parse builds the telemetry table's template, with one placeholder row
// per agent seeded from the initial data (a slice of length N, one per
// agent) passed to template.Execute.
func (tv *TelemetryView) Parse(t *template.Template) (name string, err error) {
	name = tv.id
	_, err = t.Parse(`{{ define "` + name + `" }}
	<div style="font-family:monospace;padding:20px;">
		<h2>learner telemetry</h2>
		<table>
			<tr><td>episode</td><td id="episode-count">0</td></tr>
			<tr><td>tick</td><td id="tick">0</td></tr>
			<tr><td>last joint Q</td><td id="last-q">0</td></tr>
			<tr><td>weight L1 norm</td><td id="weight-norm">0</td></tr>
			<tr><td>trace support size</td><td id="trace-size">0</td></tr>
			<tr><td>min trace</td><td id="min-trace">0</td></tr>
		</table>
		<h3>agents</h3>
		<table>
		{{ range $i, $_ := . }}
			<tr>
				<td>agent {{ $i }}</td>
				<td id="agent-{{ $i }}-label">-</td>
				<td id="agent-{{ $i }}-choices">0</td>
			</tr>
		{{ end }}
		</table>
	</div>
	{{ end }}`)
	return
}
