package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithFoldCase makes keys compare case-insensitively, ignoring surrounding
// whitespace.
func WithFoldCase() Option {
	return func(d *inMemoryDeduper) {
		d.fold = true
	}
}
