package graphite

// MockGraphite records metrics for tests.
type MockGraphite struct {
	Lines []string
}

func (self *MockGraphite) Add(path string, timestamp int64, value float64) error {
	self.Lines = append(self.Lines, path)
	return nil
}

func (self *MockGraphite) Flush() error {
	return nil
}
