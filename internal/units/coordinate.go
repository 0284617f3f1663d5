package units

// Engine coordinate space bounds. All engine-side regions and points are
// expressed in this fixed square regardless of the frame resolution.
const (
	EngineCoordinateLeft   = 0
	EngineCoordinateTop    = 0
	EngineCoordinateRight  = 8192
	EngineCoordinateBottom = 8192
)

// Coordinate is a point in some coordinate system.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Window is a rectangle given by its edges.
type Window struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width of the window; negative when the edges are inverted.
func (w Window) Width() int { return w.Right - w.Left }

// Height of the window; negative when the edges are inverted.
func (w Window) Height() int { return w.Bottom - w.Top }

// HasArea reports whether the window has positive width and height.
func (w Window) HasArea() bool { return w.Width() > 0 && w.Height() > 0 }

// Center returns the midpoint of the window using integer division.
func (w Window) Center() Coordinate {
	return Coordinate{
		X: w.Left + w.Width()/2,
		Y: w.Top + w.Height()/2,
	}
}

// CoordinateSystem bounds a coordinate space.
type CoordinateSystem struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// EngineCoordinateSystem is the fixed space used by the 3A engine.
var EngineCoordinateSystem = CoordinateSystem{
	Left:   EngineCoordinateLeft,
	Top:    EngineCoordinateTop,
	Right:  EngineCoordinateRight,
	Bottom: EngineCoordinateBottom,
}

// FrameCoordinateSystem returns the application coordinate space for a frame
// of the given resolution.
func FrameCoordinateSystem(width, height int) CoordinateSystem {
	return CoordinateSystem{Left: 0, Top: 0, Right: width, Bottom: height}
}

func (c CoordinateSystem) valid() bool {
	return c.Right > c.Left && c.Bottom > c.Top
}

// ConvertCoordinate maps a point from src into dst. ok is false when either
// system is degenerate.
func ConvertCoordinate(src, dst CoordinateSystem, p Coordinate) (Coordinate, bool) {
	if !src.valid() || !dst.valid() {
		return Coordinate{}, false
	}
	srcW, srcH := int64(src.Right-src.Left), int64(src.Bottom-src.Top)
	dstW, dstH := int64(dst.Right-dst.Left), int64(dst.Bottom-dst.Top)
	return Coordinate{
		X: dst.Left + int(int64(p.X-src.Left)*dstW/srcW),
		Y: dst.Top + int(int64(p.Y-src.Top)*dstH/srcH),
	}, true
}

// ToEngineCoordinate maps an application point into engine coordinates.
func ToEngineCoordinate(frame CoordinateSystem, p Coordinate) (Coordinate, bool) {
	return ConvertCoordinate(frame, EngineCoordinateSystem, p)
}

// ToEngineWindow maps an application window into engine coordinates by
// converting its top-left and bottom-right corners.
func ToEngineWindow(frame CoordinateSystem, w Window) (Window, bool) {
	tl, ok := ToEngineCoordinate(frame, Coordinate{X: w.Left, Y: w.Top})
	if !ok {
		return Window{}, false
	}
	br, ok := ToEngineCoordinate(frame, Coordinate{X: w.Right, Y: w.Bottom})
	if !ok {
		return Window{}, false
	}
	return Window{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}, true
}
