// Package mapview holds the state of a top-down map: an orthographic camera
// over the ground plane, draggable markers validated against the road
// network, and pointer input handling. It does no drawing.
package mapview

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Camera defaults.
const (
	DefaultBaseOrthoWidth = 10000.0
	DefaultMinZoom        = 0.1
	DefaultMaxZoom        = 10.0
	DefaultZoomSpeed      = 0.1
	DefaultPanSpeed       = 1.0
)

const zoomEpsilon = 1e-6

// Camera is an orthographic top-down view. Map UV coordinates run from 0 to
// 1 across the visible square, with (0.5, 0.5) at Center. On screen, world
// +Y points up.
type Camera struct {
	BaseOrthoWidth float64 // world width visible at zoom 1, cm
	MinZoom        float64
	MaxZoom        float64
	ZoomSpeed      float64
	PanSpeed       float64

	Center orb.Point

	zoom          float64
	width, height float64
}

// NewCamera returns a camera centred on the origin at zoom 1 with a 1×1
// viewport.
func NewCamera() *Camera {
	return &Camera{
		BaseOrthoWidth: DefaultBaseOrthoWidth,
		MinZoom:        DefaultMinZoom,
		MaxZoom:        DefaultMaxZoom,
		ZoomSpeed:      DefaultZoomSpeed,
		PanSpeed:       DefaultPanSpeed,
		zoom:           1,
		width:          1,
		height:         1,
	}
}

// SetViewport sets the screen size the map is drawn into. Non-positive sizes
// are ignored.
func (c *Camera) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		c.width, c.height = float64(width), float64(height)
	}
}

// Viewport returns the screen size.
func (c *Camera) Viewport() (width, height int) { return int(c.width), int(c.height) }

// Zoom is the current zoom factor.
func (c *Camera) Zoom() float64 { return c.zoom }

// SetZoom sets the zoom, clamped to [MinZoom, MaxZoom], and returns the
// value applied.
func (c *Camera) SetZoom(z float64) float64 {
	c.zoom = lo.Clamp(z, c.MinZoom, c.MaxZoom)
	return c.zoom
}

// OrthoWidth is the world width currently visible.
func (c *Camera) OrthoWidth() float64 { return c.BaseOrthoWidth / c.zoom }

// WorldToUV maps a ground-plane point to map UV.
func (c *Camera) WorldToUV(p orb.Point) orb.Point {
	w := c.OrthoWidth()
	return orb.Point{(p[0]-c.Center[0])/w + 0.5, (p[1]-c.Center[1])/w + 0.5}
}

// UVToWorld maps map UV to a ground-plane point.
func (c *Camera) UVToWorld(uv orb.Point) orb.Point {
	w := c.OrthoWidth()
	return orb.Point{c.Center[0] + (uv[0]-0.5)*w, c.Center[1] + (uv[1]-0.5)*w}
}

// ScreenToUV maps a viewport position to map UV. Screen Y grows downwards.
func (c *Camera) ScreenToUV(s orb.Point) orb.Point {
	return orb.Point{s[0] / c.width, 1 - s[1]/c.height}
}

// UVToScreen maps map UV to a viewport position.
func (c *Camera) UVToScreen(uv orb.Point) orb.Point {
	return orb.Point{uv[0] * c.width, (1 - uv[1]) * c.height}
}

// WorldToScreen maps a ground-plane point to a viewport position.
func (c *Camera) WorldToScreen(p orb.Point) orb.Point { return c.UVToScreen(c.WorldToUV(p)) }

// ScreenToWorld maps a viewport position to a ground-plane point.
func (c *Camera) ScreenToWorld(s orb.Point) orb.Point { return c.UVToWorld(c.ScreenToUV(s)) }

// IsVisible reports whether p is inside the visible square.
func (c *Camera) IsVisible(p orb.Point) bool { return c.Bounds().Contains(p) }

// Bounds is the visible world square.
func (c *Camera) Bounds() orb.Bound {
	h := c.OrthoWidth() / 2
	return orb.Bound{
		Min: orb.Point{c.Center[0] - h, c.Center[1] - h},
		Max: orb.Point{c.Center[0] + h, c.Center[1] + h},
	}
}

// Pan moves the view by a UV delta. Dragging the map right by a quarter of
// the viewport moves the centre left by a quarter of the visible width.
func (c *Camera) Pan(deltaUV orb.Point) {
	w := c.OrthoWidth() * c.PanSpeed
	c.Center[0] -= deltaUV[0] * w
	c.Center[1] -= deltaUV[1] * w
}

// ZoomAt changes the zoom by delta×ZoomSpeed while keeping the world point
// under uv fixed. It reports whether the zoom changed.
func (c *Camera) ZoomAt(delta float64, uv orb.Point) bool {
	z := lo.Clamp(c.zoom+delta*c.ZoomSpeed, c.MinZoom, c.MaxZoom)
	if math.Abs(z-c.zoom) < zoomEpsilon {
		return false
	}
	before := c.UVToWorld(uv)
	c.zoom = z
	after := c.UVToWorld(uv)
	c.Center[0] += before[0] - after[0]
	c.Center[1] += before[1] - after[1]
	return true
}

// CenterOn moves the view so p is in the middle.
func (c *Camera) CenterOn(p orb.Point) { c.Center = p }

// FitBounds centres on b and zooms so its larger side, grown by padding on
// each side as a fraction of that side, fills the view. A degenerate bound
// only recentres.
func (c *Camera) FitBounds(b orb.Bound, padding float64) {
	c.Center = b.Center()
	required := math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]) * (1 + 2*padding)
	if required <= 0 {
		return
	}
	c.SetZoom(c.BaseOrthoWidth / required)
}
