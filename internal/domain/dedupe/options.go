package dedupe

// Option configures the in-memory Deduper.
type Option func(*window)

// WithMaxSize sets how many keys the window keeps. Non-positive values keep
// the default.
func WithMaxSize(maxSize int) Option {
	return func(d *window) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
