//go:build !darwin && !windows && !linux && !freebsd && !openbsd && !netbsd

package input

type stubBackend struct{}

func (stubBackend) Name() string           { return "unsupported" }
func (stubBackend) Codes() CodeTable       { return X11Codes() }
func (stubBackend) Caps() Caps             { return Caps{} }
func (stubBackend) Locator() Locator       { return nil }
func (stubBackend) Open() (Session, error) { return nil, ErrUnsupportedPlatform }

func nativeBackend(string) (Backend, error) {
	return stubBackend{}, nil
}
