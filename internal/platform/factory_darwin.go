package platform

// NewDefaultBackend constructs the backend for this build's target OS
// (spec.md §4.10 "selected at compile time per the build's GOOS").
func NewDefaultBackend() (Backend, error) {
	return NewCoreAudioBackend()
}
