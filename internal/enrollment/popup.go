// internal/enrollment/popup.go
package enrollment

// Screen describes the available screen area of the user agent hosting the
// enrollment, including the multi-monitor origin offset of the current
// display.
type Screen struct {
	AvailWidth  int
	AvailHeight int
	Left        int // screenLeft/screenX of the hosting window
	Top         int // screenTop/screenY of the hosting window
}

// Viewport is the inner size of the hosting window.
type Viewport struct {
	Width  int
	Height int
}

// PopupOptions selects the desired popup size and behavior.
type PopupOptions struct {
	Width      int
	Height     int
	Title      string
	Focus      bool
	Scrollbars bool
}

// Geometry is the concrete window placement handed to the launcher, already
// compensated for device zoom.
type Geometry struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// ComputeGeometry centers a popup of the requested size on the hosting
// viewport. The zoom factor (viewport width over available screen width)
// compensates for page zoom, and the screen offsets keep the popup on the
// monitor the hosting window lives on.
func ComputeGeometry(opt PopupOptions, screen Screen, view Viewport) Geometry {
	zoom := 1.0
	if screen.AvailWidth > 0 {
		zoom = float64(view.Width) / float64(screen.AvailWidth)
	}
	if zoom == 0 {
		zoom = 1.0
	}
	return Geometry{
		Width:  int(float64(opt.Width) / zoom),
		Height: int(float64(opt.Height) / zoom),
		Left:   int(float64(view.Width-opt.Width)/2/zoom) + screen.Left,
		Top:    int(float64(view.Height-opt.Height)/2/zoom) + screen.Top,
	}
}

// PopupWindow is the handle the orchestrator holds on an opened enrollment
// popup. Closed is polled; DetachOpener severs the popup's back-reference so
// it can never navigate or script its opener.
type PopupWindow interface {
	Closed() bool
	DetachOpener()
	Focus()
}

// Launcher opens popup windows in the hosting user agent.
type Launcher interface {
	Open(url, title string, geom Geometry, scrollbars bool) (PopupWindow, error)
}
