package preview

import "gonum.org/v1/plot/vg"

// Option configures a render.
type Option func(*renderer)

// WithLabel keeps only exemplars and samples carrying label.
func WithLabel(label string) Option {
	return func(r *renderer) {
		r.label = label
	}
}

// WithLimit caps the samples drawn per label. Non-positive values are ignored.
func WithLimit(n int) Option {
	return func(r *renderer) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithSize sets the image size.
func WithSize(width, height vg.Length) Option {
	return func(r *renderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}
