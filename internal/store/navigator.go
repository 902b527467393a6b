package store

// Navigator is the navigation side-effect boundary. Store invalidation
// forces the whole app back to the home screen through it.
type Navigator interface {
	ReplaceHome(reason string)
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(reason string)

// ReplaceHome calls the function
func (f NavigatorFunc) ReplaceHome(reason string) { f(reason) }
