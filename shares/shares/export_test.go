package shares

// SetLinkSource replaces the public link generator so tests can force
// token collisions.
func (s *SharesProvider) SetLinkSource(f func() (string, error)) {
	s.newLink = f
}
