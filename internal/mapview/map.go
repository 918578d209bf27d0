package mapview

import (
	"fmt"
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/AudomaroDuran/Ai27Simulator/internal/event"
)

// DefaultHitRadius is how close, in screen units, a pointer must be to a
// marker to hit it.
const DefaultHitRadius = 20.0

// InputMode is what a pointer drag currently does.
type InputMode int

const (
	ModeNone InputMode = iota
	ModePanning
	ModeDraggingMarker
	ModePlacingMarker
)

func (m InputMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModePanning:
		return "panning"
	case ModeDraggingMarker:
		return "dragging_marker"
	case ModePlacingMarker:
		return "placing_marker"
	}
	return fmt.Sprintf("InputMode(%d)", int(m))
}

// Button is a pointer button.
type Button int

const (
	// ButtonPrimary selects, drags and places markers.
	ButtonPrimary Button = iota
	// ButtonSecondary pans.
	ButtonSecondary
)

// Map is the interactive map state.
type Map struct {
	Camera *Camera
	// Validator checks marker positions. Nil accepts every position.
	Validator     Validator
	HitRadius     float64
	AllowDragging bool
	AllowPanning  bool
	AllowZooming  bool
	// ZoomSensitivity scales wheel deltas.
	ZoomSensitivity float64
	Logger          *log.Logger

	MapClicked         event.Delegate[orb.Point]
	MarkerClicked      event.Delegate[MarkerEvent]
	MarkerMoved        event.Delegate[MarkerEvent]
	MarkerStateChanged event.Delegate[StateChange]
	ZoomChanged        event.Delegate[ZoomChange]

	markers     []*Marker
	nextID      int
	mode        InputMode
	placing     MarkerKind
	dragging    string
	lastPointer orb.Point
}

// New returns a map with a default camera and every interaction enabled.
func New() *Map {
	return &Map{
		Camera:          NewCamera(),
		HitRadius:       DefaultHitRadius,
		AllowDragging:   true,
		AllowPanning:    true,
		AllowZooming:    true,
		ZoomSensitivity: 1,
	}
}

func (m *Map) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}

// Mode is the current input mode.
func (m *Map) Mode() InputMode { return m.mode }

// AddMarker places a new marker of kind at p and returns its ID. IDs are
// "Origin_N", "Destination_N" or "Marker_N" with N counting every marker
// the map has created. The position is validated; an invalid position is
// kept as given and the marker starts Invalid.
func (m *Map) AddMarker(kind MarkerKind, p orb.Point) string {
	id := fmt.Sprintf("%s_%d", kind, m.nextID)
	m.nextID++
	mk := &Marker{ID: id, Kind: kind, Position: p, Draggable: true, Visible: true, Label: kind.String()}
	m.validate(mk, p)
	if !mk.Valid {
		mk.State = Invalid
		m.logf("warning: map: marker %s placed off the road network at (%.0f, %.0f)", id, p[0], p[1])
	}
	m.markers = append(m.markers, mk)
	return id
}

// validate snaps mk to p. An invalid p leaves the position unchanged.
func (m *Map) validate(mk *Marker, p orb.Point) {
	if m.Validator == nil {
		mk.Position, mk.Valid = p, true
		mk.Road, mk.Distance = "", 0
		return
	}
	s, ok := m.Validator.Validate(p)
	mk.Valid = ok
	if ok {
		mk.Position, mk.Road, mk.Distance = s.Position, s.Road, s.Distance
	}
}

// Marker returns a copy of the marker with id.
func (m *Map) Marker(id string) (Marker, bool) {
	mk := m.find(id)
	if mk == nil {
		return Marker{}, false
	}
	return *mk, true
}

func (m *Map) find(id string) *Marker {
	mk, _ := lo.Find(m.markers, func(mk *Marker) bool { return mk.ID == id })
	return mk
}

// Markers returns copies of every marker in creation order.
func (m *Map) Markers() []Marker {
	return lo.Map(m.markers, func(mk *Marker, _ int) Marker { return *mk })
}

// MarkersOf returns every marker of kind.
func (m *Map) MarkersOf(kind MarkerKind) []Marker {
	return lo.FilterMap(m.markers, func(mk *Marker, _ int) (Marker, bool) { return *mk, mk.Kind == kind })
}

// RemoveMarker deletes the marker with id.
func (m *Map) RemoveMarker(id string) bool {
	before := len(m.markers)
	m.markers = lo.Reject(m.markers, func(mk *Marker, _ int) bool { return mk.ID == id })
	if m.dragging == id {
		m.dragging = ""
		m.mode = ModeNone
	}
	return len(m.markers) < before
}

// ClearMarkers deletes every marker. IDs keep counting.
func (m *Map) ClearMarkers() {
	m.markers = nil
	m.dragging = ""
	if m.mode == ModeDraggingMarker {
		m.mode = ModeNone
	}
}

// MoveMarker validates p and moves the marker there. It reports whether
// the new position is valid; an invalid move leaves the marker where it was
// and marks it Invalid.
func (m *Map) MoveMarker(id string, p orb.Point) bool {
	mk := m.find(id)
	if mk == nil {
		return false
	}
	m.validate(mk, p)
	m.setState(mk, lo.Ternary(mk.Valid, Idle, Invalid))
	m.MarkerMoved.Broadcast(MarkerEvent{ID: id, Position: mk.Position})
	return mk.Valid
}

// SetMarkerState changes a marker's state, firing MarkerStateChanged.
func (m *Map) SetMarkerState(id string, s MarkerState) {
	if mk := m.find(id); mk != nil {
		m.setState(mk, s)
	}
}

func (m *Map) setState(mk *Marker, s MarkerState) {
	if mk.State == s {
		return
	}
	old := mk.State
	mk.State = s
	m.MarkerStateChanged.Broadcast(StateChange{ID: mk.ID, Old: old, New: s})
}

// MarkerAt returns the ID of the visible marker nearest to screen position
// s, if one is strictly within HitRadius.
func (m *Map) MarkerAt(s orb.Point) (string, bool) {
	best, bestDist := "", m.HitRadius
	for _, mk := range m.markers {
		if !mk.Visible {
			continue
		}
		p := m.Camera.WorldToScreen(mk.Position)
		if d := math.Hypot(p[0]-s[0], p[1]-s[1]); d < bestDist {
			best, bestDist = mk.ID, d
		}
	}
	return best, best != ""
}

// SetZoom sets the camera zoom and fires ZoomChanged when it changed.
func (m *Map) SetZoom(z float64) {
	old := m.Camera.Zoom()
	if applied := m.Camera.SetZoom(z); math.Abs(applied-old) >= zoomEpsilon {
		m.ZoomChanged.Broadcast(ZoomChange{Old: old, New: applied})
	}
}

// CenterOnMarker centres the camera on the marker with id.
func (m *Map) CenterOnMarker(id string) bool {
	mk := m.find(id)
	if mk == nil {
		return false
	}
	m.Camera.CenterOn(mk.Position)
	return true
}

// FitMarkers fits every marker into view with padding. It does nothing
// without markers.
func (m *Map) FitMarkers(padding float64) {
	if len(m.markers) == 0 {
		return
	}
	b := m.markers[0].Position.Bound()
	for _, mk := range m.markers[1:] {
		b = b.Extend(mk.Position)
	}
	old := m.Camera.Zoom()
	m.Camera.FitBounds(b, padding)
	if z := m.Camera.Zoom(); math.Abs(z-old) >= zoomEpsilon {
		m.ZoomChanged.Broadcast(ZoomChange{Old: old, New: z})
	}
}

// BeginPlacing makes the next primary click on empty map place a marker of
// kind.
func (m *Map) BeginPlacing(kind MarkerKind) {
	m.mode = ModePlacingMarker
	m.placing = kind
}

// CancelPlacing leaves placing mode.
func (m *Map) CancelPlacing() {
	if m.mode == ModePlacingMarker {
		m.mode = ModeNone
	}
}

// PointerDown handles a button press at screen position s.
func (m *Map) PointerDown(s orb.Point, b Button) {
	m.lastPointer = s
	switch b {
	case ButtonPrimary:
		if id, ok := m.MarkerAt(s); ok {
			mk := m.find(id)
			if mk.Draggable && m.AllowDragging {
				m.mode = ModeDraggingMarker
				m.dragging = id
				m.setState(mk, Dragging)
				return
			}
			m.MarkerClicked.Broadcast(MarkerEvent{ID: id, Position: mk.Position})
			return
		}
		world := m.Camera.ScreenToWorld(s)
		if m.mode == ModePlacingMarker {
			m.mode = ModeNone
			m.AddMarker(m.placing, world)
			return
		}
		m.MapClicked.Broadcast(world)
	case ButtonSecondary:
		if m.AllowPanning {
			m.mode = ModePanning
		}
	}
}

// PointerMove handles the pointer moving to screen position s.
func (m *Map) PointerMove(s orb.Point) {
	delta := orb.Point{s[0] - m.lastPointer[0], s[1] - m.lastPointer[1]}
	m.lastPointer = s

	switch m.mode {
	case ModePanning:
		w, h := m.Camera.Viewport()
		m.Camera.Pan(orb.Point{delta[0] / float64(w), -delta[1] / float64(h)})
	case ModeDraggingMarker:
		mk := m.find(m.dragging)
		if mk == nil {
			return
		}
		// The marker keeps its last valid position while over invalid
		// ground.
		m.validate(mk, m.Camera.ScreenToWorld(s))
	case ModeNone:
		m.updateHover(s)
	}
}

func (m *Map) updateHover(s orb.Point) {
	hovered, _ := m.MarkerAt(s)
	for _, mk := range m.markers {
		switch {
		case mk.ID == hovered && mk.State == Idle:
			m.setState(mk, Hovered)
		case mk.ID != hovered && mk.State == Hovered:
			m.setState(mk, Idle)
		}
	}
}

// PointerUp ends a drag or pan.
func (m *Map) PointerUp(s orb.Point) {
	m.lastPointer = s
	switch m.mode {
	case ModeDraggingMarker:
		if mk := m.find(m.dragging); mk != nil {
			m.setState(mk, lo.Ternary(mk.Valid, Idle, Invalid))
			m.MarkerMoved.Broadcast(MarkerEvent{ID: mk.ID, Position: mk.Position})
		}
		m.dragging = ""
		m.mode = ModeNone
	case ModePanning:
		m.mode = ModeNone
	}
}

// Wheel zooms around screen position s.
func (m *Map) Wheel(s orb.Point, delta float64) {
	if !m.AllowZooming {
		return
	}
	old := m.Camera.Zoom()
	if m.Camera.ZoomAt(delta*m.ZoomSensitivity, m.Camera.ScreenToUV(s)) {
		m.ZoomChanged.Broadcast(ZoomChange{Old: old, New: m.Camera.Zoom()})
	}
}
