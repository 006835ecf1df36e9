package input

import (
	"errors"
	"fmt"
)

// withSession opens a session on b, runs fn and always flushes and closes
// the session afterwards. When Open fails nothing else is called.
func withSession(b Backend, fn func(Session) error) (err error) {
	s, err := b.Open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	if s == nil {
		return fmt.Errorf("%w: backend %s returned no session", ErrSessionUnavailable, b.Name())
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = nativeErr("close", cerr)
		}
	}()

	err = fn(s)
	if ferr := s.Flush(); ferr != nil {
		err = errors.Join(err, nativeErr("flush", ferr))
	}
	return err
}
