package core

// Store bundles the handful of queries the ingestion pipeline needs
// against the shared tenant database. Handlers depend on the subset of
// its methods they use, so tests can substitute an in-memory fake.
type Store struct {
	Dm *DatabaseManager
}

func NewStore(dm *DatabaseManager) *Store {
	return &Store{Dm: dm}
}
