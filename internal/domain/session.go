package domain

// Session is the authenticated identity a request or live workspace acts as.
// It is built once at the edge and passed down explicitly.
type Session struct {
	User        *User  `json:"user"`
	AccessToken string `json:"-"`
}

func (s *Session) Active() bool {
	return s != nil && s.User != nil && s.User.ID != ""
}

func (s *Session) UserID() string {
	if !s.Active() {
		return ""
	}
	return s.User.ID
}
