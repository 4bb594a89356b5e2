package domain

// Store groups the repositories behind a single unit-of-work boundary.
// WithTransaction runs fn against repositories bound to one database
// transaction: every mutation inside fn commits or rolls back together.
type Store interface {
	Transactions() TransactionRepository
	Users() UserRepository
	WithTransaction(fn func(Store) error) error
}
