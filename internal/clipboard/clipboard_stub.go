//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

const supported = false

func newBackend() backend { return nil }
