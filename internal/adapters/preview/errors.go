package preview

import "errors"

var (
	// ErrNothingToPlot is returned when the filters leave no trajectory to draw.
	ErrNothingToPlot = errors.New("nothing to plot")
	// ErrRender wraps failures of the plotting backend.
	ErrRender = errors.New("render preview")
)
