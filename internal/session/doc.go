// Package session owns the one browser automation session of a program.
//
// A Manager launches chromedriver, connects to its control endpoint with a
// bounded number of retries and hands out the resulting session. The first
// successful call to Session creates it; later calls return the same value
// until Close. Configuration changes made after that are ignored.
//
//	err := session.Run(ctx, session.DefaultConfig(), func(s *session.Session) error {
//		h := s.Handle()
//		...
//	})
package session
