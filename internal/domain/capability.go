package domain

// Refresher is implemented by payloads that can be asked to re-read their
// current value. Refresh is a fire-and-forget trigger: results come back
// later as ordinary notifications, never as a return value.
type Refresher interface {
	Refresh(id string) error
}

// Expander is implemented by payloads that want to know when the
// presentation layer expands their node, e.g. to lazily fetch children.
type Expander interface {
	OnExpand(id string)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(id string) error

// Refresh calls f(id).
func (f RefresherFunc) Refresh(id string) error {
	return f(id)
}
