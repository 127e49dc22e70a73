package appuniverse

import "slices"

// SetCaptureMessages toggles message capture. While capture is enabled,
// Send buffers messages instead of dispatching them: the core is not
// mutated and subscribers are not notified. Disabling capture stops the
// buffering; already captured messages stay available until
// ClearCapturedMessages.
//
// Capture exists for tests that assert on the message traffic a component
// produces without running the reducer behind it.
func (s Store[M, C]) SetCaptureMessages(capture bool) {
	st := s.inner
	st.mu.Lock()
	defer st.mu.Unlock()
	st.capture = capture
}

// CapturedMessages returns a copy of the messages buffered while capture
// was enabled, in the order they were sent.
func (s Store[M, C]) CapturedMessages() []M {
	st := s.inner
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slices.Clone(st.captured)
}

// ClearCapturedMessages empties the capture buffer.
func (s Store[M, C]) ClearCapturedMessages() {
	st := s.inner
	st.mu.Lock()
	defer st.mu.Unlock()
	st.captured = nil
}
