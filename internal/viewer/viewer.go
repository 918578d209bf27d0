// Package viewer is a terminal front end for a running simulation. It draws
// the road network and vehicles top-down, lists the vehicles in a side panel
// and previews the shortest route between two map markers.
package viewer

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/paulmach/orb"

	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/graph"
	"github.com/AudomaroDuran/Ai27Simulator/internal/listview"
	"github.com/AudomaroDuran/Ai27Simulator/internal/mapview"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
)

const (
	// PanelWidth is the widest the vehicle panel gets.
	PanelWidth = 36
	// SnapTolerance widens roads when markers are dropped, cm.
	SnapTolerance = 500.0
	// DefaultInterval is the wall-clock time between simulation steps.
	DefaultInterval = 100 * time.Millisecond

	statusRows = 2
	hitRadius  = 2.0 // screen units, one cell wide
	fitPadding = 0.05
	// Road edges are drawn once a road is at least this many cells wide.
	edgeCells = 3.0
)

var (
	styleRoad     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleRoute    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleJunction = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleVehicle  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleStopped  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleMarker   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlue)
	styleInvalid  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
	styleHeader   = tcell.StyleDefault.Bold(true)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorSilver)
)

// Viewer owns the terminal screen while a simulation runs.
type Viewer struct {
	Screen   tcell.Screen
	Sim      *engine.Simulation
	Map      *mapview.Map
	List     *listview.Manager[vehicle.Log]
	Interval time.Duration
	Logger   *log.Logger

	graph     *graph.Graph
	route     []string
	paused    bool
	message   string
	lastEvent string
	time      float64
	buttons   tcell.ButtonMask
	width     int
	height    int
}

// New returns a viewer for sim drawing into screen, which must already be
// initialised. The camera starts fitted to the road network.
func New(screen tcell.Screen, sim *engine.Simulation, logger *log.Logger) (*Viewer, error) {
	g, err := graph.FromNetwork(sim.Network(), vehicle.DefaultConfig().SearchRadius)
	if err != nil {
		return nil, fmt.Errorf("building road graph: %w", err)
	}
	m := mapview.New()
	m.Logger = logger
	m.HitRadius = hitRadius
	m.Validator = mapview.RoadValidator{Network: sim.Network(), Tolerance: SnapTolerance}

	v := &Viewer{
		Screen:   screen,
		Sim:      sim,
		Map:      m,
		List:     listview.New[vehicle.Log](1),
		Interval: DefaultInterval,
		Logger:   logger,
		graph:    g,
	}
	m.MarkerMoved.Add(func(mapview.MarkerEvent) { v.updateRoute() })
	v.Resize()
	v.Fit()
	return v, nil
}

func (v *Viewer) logf(format string, args ...any) {
	if v.Logger != nil {
		v.Logger.Printf(format, args...)
	}
}

// Route is the previewed road sequence between the origin and destination
// markers, or nil.
func (v *Viewer) Route() []string { return v.route }

// Paused reports whether stepping is suspended.
func (v *Viewer) Paused() bool { return v.paused }

// Message is the bottom status line.
func (v *Viewer) Message() string { return v.message }

func (v *Viewer) layout() (mapW, mapH, panelW int) {
	panelW = min(PanelWidth, v.width/3)
	return v.width - panelW, max(v.height-statusRows, 1), panelW
}

// Resize adapts the camera and list to the current screen size. Each cell
// is two screen units tall so the map keeps a roughly square aspect.
func (v *Viewer) Resize() {
	v.width, v.height = v.Screen.Size()
	mapW, mapH, _ := v.layout()
	v.Map.Camera.SetViewport(mapW, mapH*2)
	v.List.VisibleRows = max(mapH-1, 1)
	v.List.SetOffset(v.List.Offset())
}

// Fit zooms the camera to show the whole network.
func (v *Viewer) Fit() {
	v.Map.Camera.FitBounds(v.Sim.Network().Bounds(), fitPadding)
}

// Update folds a log row into the vehicle list.
func (v *Viewer) Update(row engine.SimulationLogRow) {
	v.time = row.Timestamp
	for _, l := range row.VehicleLogs {
		if e, ok := v.List.Find(func(e *listview.Entry[vehicle.Log]) bool { return e.Tag == l.ID }); ok {
			v.List.Update(e, l)
			continue
		}
		v.List.AddValue(l, l.ID)
	}
	if v.List.Current() == nil && v.List.Len() > 0 {
		v.List.SelectAt(0)
	}
	if n := len(row.Events); n > 0 {
		e := row.Events[n-1]
		v.lastEvent = strings.TrimSpace(fmt.Sprintf("%s %s %s", e.Vehicle, e.Kind, e.Subject))
	}
}

// Tick advances the simulation by one time step unless paused or finished.
func (v *Viewer) Tick() {
	if v.paused || v.Sim.Finished() {
		return
	}
	v.Update(v.Sim.Step(v.Sim.Meta().TimeStep))
}

// Run steps the simulation every Interval and redraws until ctx is
// cancelled or the user quits.
func (v *Viewer) Run(ctx context.Context) error {
	v.Screen.EnableMouse()
	v.Screen.HideCursor()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := v.Screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	interval := v.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v.Update(v.Sim.Step(0))
	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !v.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			v.Tick()
		}
		v.Draw()
	}
}

// HandleEvent reacts to one terminal event. It returns false when the user
// asked to quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.Resize()
		v.Screen.Sync()
	case *tcell.EventKey:
		return v.HandleKey(ev.Key(), ev.Rune())
	case *tcell.EventMouse:
		x, y := ev.Position()
		v.handleMouse(x, y, ev.Buttons())
	}
	return true
}

// HandleKey reacts to a key press. r is only meaningful for tcell.KeyRune.
func (v *Viewer) HandleKey(k tcell.Key, r rune) bool {
	switch k {
	case tcell.KeyEscape:
		if v.Map.Mode() == mapview.ModePlacingMarker {
			v.Map.CancelPlacing()
			v.message = ""
			return true
		}
		return false
	case tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.List.SelectPrevious()
	case tcell.KeyDown:
		v.List.SelectNext()
	case tcell.KeyEnter:
		if e := v.List.Current(); e != nil {
			v.Map.Camera.CenterOn(orb.Point{e.Value.Location.X, e.Value.Location.Y})
		}
	case tcell.KeyRune:
		return v.handleRune(r)
	}
	return true
}

func (v *Viewer) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case ' ':
		v.paused = !v.paused
	case '+', '=':
		v.Map.SetZoom(v.Map.Camera.Zoom() * 1.25)
	case '-':
		v.Map.SetZoom(v.Map.Camera.Zoom() / 1.25)
	case 'f':
		v.Fit()
	case 'o':
		v.Map.BeginPlacing(mapview.Origin)
		v.message = "click a road to place the origin"
	case 'd':
		v.Map.BeginPlacing(mapview.Destination)
		v.message = "click a road to place the destination"
	case 'c':
		v.Map.ClearMarkers()
		v.updateRoute()
	case 's':
		v.command(engine.CommandStop)
	case 'r':
		v.command(engine.CommandResume)
	}
	return true
}

// command applies kind to the selected vehicle.
func (v *Viewer) command(kind engine.CommandKind) {
	e := v.List.Current()
	if e == nil {
		v.message = "no vehicle selected"
		return
	}
	cmd := engine.Command{Vehicle: e.Value.ID, Kind: kind}
	if err := v.Sim.Apply(cmd); err != nil {
		v.message = err.Error()
		v.logf("warning: viewer: %v", err)
		return
	}
	v.message = fmt.Sprintf("%s: %s", e.Value.ID, cmd)
	v.Update(v.Sim.Snapshot())
}

func cellToScreen(x, y int) orb.Point { return orb.Point{float64(x) + 0.5, float64(y)*2 + 1} }

func screenToCell(p orb.Point) (int, int) {
	return int(math.Floor(p[0])), int(math.Floor(p[1] / 2))
}

// CellOf returns the cell a world point is drawn in.
func (v *Viewer) CellOf(p orb.Point) (int, int) { return screenToCell(v.Map.Camera.WorldToScreen(p)) }

func (v *Viewer) handleMouse(x, y int, buttons tcell.ButtonMask) {
	mapW, mapH, _ := v.layout()
	pressed := buttons & (tcell.Button1 | tcell.Button2)
	defer func() { v.buttons = pressed }()

	if x >= mapW && v.buttons == 0 && pressed&tcell.Button1 != 0 {
		if row := y - 1; row >= 0 && row < mapH-1 {
			v.List.SelectAt(v.List.Offset() + row)
		}
		return
	}

	p := cellToScreen(x, y)
	if buttons&tcell.WheelUp != 0 {
		v.Map.Wheel(p, 1)
	}
	if buttons&tcell.WheelDown != 0 {
		v.Map.Wheel(p, -1)
	}

	switch {
	case v.buttons == 0 && pressed != 0:
		placing := v.Map.Mode() == mapview.ModePlacingMarker
		if pressed&tcell.Button1 != 0 {
			v.Map.PointerDown(p, mapview.ButtonPrimary)
		} else {
			v.Map.PointerDown(p, mapview.ButtonSecondary)
		}
		if placing && v.Map.Mode() != mapview.ModePlacingMarker {
			v.message = ""
			v.updateRoute()
		}
	case v.buttons != 0 && pressed == 0:
		v.Map.PointerUp(p)
	default:
		v.Map.PointerMove(p)
	}
}

// lastMarker is the most recent valid marker of kind.
func (v *Viewer) lastMarker(kind mapview.MarkerKind) (mapview.Marker, bool) {
	markers := v.Map.MarkersOf(kind)
	for i := len(markers) - 1; i >= 0; i-- {
		if markers[i].Valid && markers[i].Road != "" {
			return markers[i], true
		}
	}
	return mapview.Marker{}, false
}

func (v *Viewer) updateRoute() {
	v.route = nil
	from, ok := v.lastMarker(mapview.Origin)
	if !ok {
		return
	}
	to, ok := v.lastMarker(mapview.Destination)
	if !ok {
		return
	}
	path, err := v.graph.GetShortestPath(from.Road, to.Road)
	if err != nil {
		v.message = err.Error()
		return
	}
	v.route = path.Route
	v.message = fmt.Sprintf("route %s: %d road(s), %.2f km",
		strings.Join(path.Route, " → "), len(path.Route), v.graph.TripLength(path)/100000)
}

// Draw renders the whole screen.
func (v *Viewer) Draw() {
	v.Screen.Clear()
	mapW, mapH, _ := v.layout()
	v.drawRoads(mapW, mapH)
	v.drawVehicles(mapW, mapH)
	v.drawMarkers(mapW, mapH)
	v.drawPanel(mapW, mapH)
	v.drawStatus(mapH)
	v.Screen.Show()
}

func (v *Viewer) plot(x, y, mapW, mapH int, r rune, style tcell.Style) {
	if x >= 0 && x < mapW && y >= 0 && y < mapH {
		v.Screen.SetContent(x, y, r, nil, style)
	}
}

func (v *Viewer) drawRoads(mapW, mapH int) {
	cell := v.Map.Camera.OrthoWidth() / float64(max(mapW, 1))
	step := cell / 2
	onRoute := map[string]bool{}
	for _, id := range v.route {
		onRoute[id] = true
	}
	for _, seg := range v.Sim.Network().Roads() {
		if seg.Curve() == nil {
			continue
		}
		r, style := '·', styleRoad
		if onRoute[seg.ID] {
			r, style = '•', styleRoute
		}
		if seg.Width/cell >= edgeCells {
			for _, sl := range seg.MeshSegments(step) {
				for _, e := range []geom.Vec3{sl.StartLeft, sl.StartRight, sl.EndLeft, sl.EndRight} {
					x, y := v.CellOf(orb.Point{e[0], e[1]})
					v.plot(x, y, mapW, mapH, '░', style)
				}
			}
		}
		for _, p := range seg.LineString(step) {
			x, y := v.CellOf(p)
			v.plot(x, y, mapW, mapH, r, style)
		}
	}
	for _, in := range v.Sim.Network().Intersections() {
		loc := in.Location()
		x, y := v.CellOf(orb.Point{loc[0], loc[1]})
		v.plot(x, y, mapW, mapH, '╬', styleJunction)
	}
}

// vehicleRune labels the i-th listed vehicle.
func vehicleRune(i int) rune {
	if i < 9 {
		return rune('1' + i)
	}
	return '*'
}

func (v *Viewer) drawVehicles(mapW, mapH int) {
	for i, e := range v.List.Entries() {
		l := e.Value
		style := styleVehicle
		if l.State == vehicle.StateStopped {
			style = styleStopped
		}
		if e.Selected() {
			style = style.Reverse(true)
		}
		x, y := v.CellOf(orb.Point{l.Location.X, l.Location.Y})
		v.plot(x, y, mapW, mapH, vehicleRune(i), style)
	}
}

func (v *Viewer) drawMarkers(mapW, mapH int) {
	for _, mk := range v.Map.Markers() {
		if !mk.Visible {
			continue
		}
		r := '+'
		switch mk.Kind {
		case mapview.Origin:
			r = 'A'
		case mapview.Destination:
			r = 'B'
		}
		style := styleMarker
		if !mk.Valid {
			style = styleInvalid
		}
		if mk.State == mapview.Hovered || mk.State == mapview.Dragging {
			style = style.Bold(true).Underline(true)
		}
		x, y := v.CellOf(mk.Position)
		v.plot(x, y, mapW, mapH, r, style)
	}
}

func (v *Viewer) puts(x, y, width int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		if i >= width {
			return
		}
		v.Screen.SetContent(x+i, y, r, nil, style)
	}
}

func (v *Viewer) drawPanel(mapW, mapH int) {
	for y := 0; y < mapH; y++ {
		v.Screen.SetContent(mapW, y, '│', nil, styleStatus)
	}
	x, width := mapW+2, v.width-mapW-2
	v.puts(x, 0, width, fmt.Sprintf("Vehicles (%d)", v.List.Len()), styleHeader)

	offset := v.List.Offset()
	for i, e := range v.List.Visible() {
		l := e.Value
		line := fmt.Sprintf("%c %-10s %-10s %5.1f km/h", vehicleRune(offset+i), l.ID, l.State, l.SpeedKmh)
		style := tcell.StyleDefault
		if e.Selected() {
			style = style.Reverse(true)
		}
		v.puts(x, i+1, width, line, style)
	}
}

func (v *Viewer) drawStatus(mapH int) {
	state := "running"
	switch {
	case v.Sim.Finished():
		state = "finished"
	case v.paused:
		state = "paused"
	}
	line := fmt.Sprintf("t=%.1fs %s  zoom %.2f  %s", v.time, state, v.Map.Camera.Zoom(), v.lastEvent)
	v.puts(0, mapH, v.width, line, styleStatus)

	msg := v.message
	if msg == "" {
		msg = "q quit  space pause  o/d origin/destination  c clear  s/r stop/resume  +/- zoom  f fit"
	}
	v.puts(0, mapH+1, v.width, msg, styleStatus)
}
