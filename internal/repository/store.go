package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"brokerdesk/internal/domain"
)

// PostgresStore implements domain.Store on a pgx connection pool
type PostgresStore struct {
	db            *pgxpool.Pool
	users         domain.UserRepository
	transactions  domain.TransactionRepository
	notifications domain.NotificationRepository
	ledger        domain.Ledger
	stats         domain.StatisticsRepository
}

var _ domain.Store = (*PostgresStore)(nil)

// NewPostgresStore wires every repository onto db
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db:            db,
		users:         NewUserRepository(db),
		transactions:  NewTransactionRepository(db),
		notifications: NewNotificationRepository(db),
		ledger:        NewLedgerRepository(db),
		stats:         NewStatisticsRepository(db),
	}
}

func (s *PostgresStore) Users() domain.UserRepository                 { return s.users }
func (s *PostgresStore) Transactions() domain.TransactionRepository   { return s.transactions }
func (s *PostgresStore) Notifications() domain.NotificationRepository { return s.notifications }
func (s *PostgresStore) Ledger() domain.Ledger                        { return s.ledger }
func (s *PostgresStore) Stats() domain.StatisticsRepository           { return s.stats }

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

// Close releases the pool
func (s *PostgresStore) Close() { s.db.Close() }
