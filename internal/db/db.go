package db

// DB is a generic database port so the journal repository does not
// depend on a concrete driver.
type DB interface {
	Conn() any
	Close() error
}
