package input

// NativeBackend returns the injection backend of the running platform.
// display names the X server on X11 and is ignored elsewhere; an empty
// string means $DISPLAY.
func NativeBackend(display string) (Backend, error) {
	return nativeBackend(display)
}
