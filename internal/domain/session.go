package domain

// Session is a point-in-time snapshot of the session state.
type Session struct {
	Principal *Principal
	Loading   bool
	LastError string
}

// IsAuthenticated is derived from the principal and never stored separately.
func (s Session) IsAuthenticated() bool {
	return s.Principal != nil
}
