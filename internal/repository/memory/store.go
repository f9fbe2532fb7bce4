// Package memory provides an in-process storage backend used for local
// development and tests. All state lives behind a single mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

// Store implements domain.Store in memory
type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*domain.User
	transactions  map[uuid.UUID]*domain.Transaction
	notifications map[uuid.UUID]*domain.Notification
}

var _ domain.Store = (*Store)(nil)

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*domain.User),
		transactions:  make(map[uuid.UUID]*domain.Transaction),
		notifications: make(map[uuid.UUID]*domain.Notification),
	}
}

func (s *Store) Users() domain.UserRepository                 { return userRepo{s} }
func (s *Store) Transactions() domain.TransactionRepository   { return transactionRepo{s} }
func (s *Store) Notifications() domain.NotificationRepository { return notificationRepo{s} }
func (s *Store) Ledger() domain.Ledger                        { return ledger{s} }
func (s *Store) Stats() domain.StatisticsRepository           { return stats{s} }

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() {}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	r.s.users[user.ID] = user.Clone()
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r userRepo) List(_ context.Context, filter domain.UserFilter) ([]*domain.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []*domain.User
	for _, u := range r.s.users {
		if filter.Status != "" && u.AccountStatus != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.FullName()), search) {
			continue
		}
		matched = append(matched, u.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r userRepo) ListAdmins(_ context.Context) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var admins []*domain.User
	for _, u := range r.s.users {
		if u.IsAdmin() {
			admins = append(admins, u.Clone())
		}
	}
	return admins, nil
}

func (r userRepo) update(id uuid.UUID, fn func(u *domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r userRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	return r.update(user.ID, func(u *domain.User) {
		u.FirstName = user.FirstName
		u.LastName = user.LastName
		u.Phone = user.Phone
		u.Country = user.Country
		u.Address = user.Address
		u.DateOfBirth = user.DateOfBirth
	})
}

func (r userRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r userRepo) UpdateAvatar(_ context.Context, id uuid.UUID, data string) error {
	return r.update(id, func(u *domain.User) { u.Avatar = data })
}

func (r userRepo) UpdateKYCDocument(_ context.Context, id uuid.UUID, data string) error {
	return r.update(id, func(u *domain.User) { u.KYCDocument = data })
}

func (r userRepo) UpdateAccountStatus(_ context.Context, id uuid.UUID, status, reason string) error {
	return r.update(id, func(u *domain.User) {
		u.AccountStatus = status
		u.RejectionReason = reason
	})
}

func (r userRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)
	for txID, tx := range r.s.transactions {
		if tx.UserID == id {
			delete(r.s.transactions, txID)
		}
	}
	for nID, n := range r.s.notifications {
		if n.UserID == id {
			delete(r.s.notifications, nID)
		}
	}
	return nil
}

// --- transactions ---

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(_ context.Context, tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[tx.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	r.s.transactions[tx.ID] = tx.Clone()
	return nil
}

func (r transactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tx.Clone(), nil
}

func (r transactionRepo) List(_ context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*domain.Transaction
	for _, tx := range r.s.transactions {
		if filter.UserID != nil && tx.UserID != *filter.UserID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		matched = append(matched, tx.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

// --- notifications ---

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[n.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	c := *n
	r.s.notifications[n.ID] = &c
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}

func (r notificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) owned(id, userID uuid.UUID) (*domain.Notification, error) {
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotificationNotFound
	}
	return n, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, err := r.owned(id, userID)
	if err != nil {
		return err
	}
	n.Read = true
	return nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var updated int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (r notificationRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.owned(id, userID); err != nil {
		return err
	}
	delete(r.s.notifications, id)
	return nil
}

func (r notificationRepo) DeleteAll(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for id, n := range r.s.notifications {
		if n.UserID == userID {
			delete(r.s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r notificationRepo) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var purged int64
	for id, n := range r.s.notifications {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(r.s.notifications, id)
			purged++
		}
	}
	return purged, nil
}

// --- ledger ---

type ledger struct{ s *Store }

func (l ledger) Transition(_ context.Context, id uuid.UUID, from, to domain.TransactionStatus, note string) (*domain.Transaction, *domain.User, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	tx, ok := l.s.transactions[id]
	if !ok {
		return nil, nil, domain.ErrTransactionNotFound
	}
	if tx.Status != from {
		return nil, nil, domain.ErrConcurrentModification
	}

	var updatedUser *domain.User
	if to == domain.StatusCompleted && tx.AffectsBalance() {
		owner, ok := l.s.users[tx.UserID]
		if !ok {
			return nil, nil, domain.ErrUserNotFound
		}
		// Work on a copy so a rejected withdrawal leaves the owner untouched
		next := owner.Clone()
		if err := domain.ApplyCompletion(next, tx); err != nil {
			return nil, nil, err
		}
		next.UpdatedAt = time.Now().UTC()
		l.s.users[owner.ID] = next
		updatedUser = next.Clone()
	}

	tx.Status = to
	if note != "" {
		tx.AdminNotes = note
	}
	tx.UpdatedAt = time.Now().UTC()
	return tx.Clone(), updatedUser, nil
}

func (l ledger) Credit(_ context.Context, tx *domain.Transaction) (*domain.User, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	owner, ok := l.s.users[tx.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if !owner.IsVerified() {
		return nil, domain.ErrNotVerified
	}

	owner.Balance = owner.Balance.Add(tx.Amount)
	owner.TotalDeposit = owner.TotalDeposit.Add(tx.Amount)
	owner.UpdatedAt = time.Now().UTC()

	recorded := tx.Clone()
	recorded.Type = domain.TypeDeposit
	recorded.Status = domain.StatusCompleted
	l.s.transactions[recorded.ID] = recorded
	return owner.Clone(), nil
}

func (l ledger) Move(_ context.Context, tx *domain.Transaction, from, to domain.Bucket) (*domain.User, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	owner, ok := l.s.users[tx.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	next := owner.Clone()
	if err := domain.MoveFunds(next, from, to, tx.Amount); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	l.s.users[owner.ID] = next

	recorded := tx.Clone()
	recorded.Type = domain.TypeTransfer
	recorded.Status = domain.StatusCompleted
	l.s.transactions[recorded.ID] = recorded
	return next.Clone(), nil
}

// --- statistics ---

type stats struct{ s *Store }

func (st stats) Statistics(_ context.Context) (*domain.Statistics, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	out := &domain.Statistics{
		UsersByStatus:       make(map[string]int),
		TransactionsByState: make(map[string]int),
	}
	for _, u := range st.s.users {
		if u.IsAdmin() {
			continue
		}
		out.TotalUsers++
		out.UsersByStatus[u.AccountStatus]++
	}

	deposits, withdrawals := decimal.Zero, decimal.Zero
	for _, tx := range st.s.transactions {
		out.TransactionsByState[string(tx.Status)]++
		switch {
		case tx.Type == domain.TypeDeposit && tx.Status == domain.StatusCompleted:
			deposits = deposits.Add(tx.Amount)
		case tx.Type == domain.TypeWithdrawal && tx.Status == domain.StatusCompleted:
			withdrawals = withdrawals.Add(tx.Amount)
		case tx.Type == domain.TypeDeposit && tx.Status == domain.StatusPending:
			out.PendingDeposits++
		case tx.Type == domain.TypeWithdrawal && tx.Status == domain.StatusPending:
			out.PendingWithdrawals++
		}
	}
	out.TotalDeposits = deposits.String()
	out.TotalWithdrawals = withdrawals.String()
	return out, nil
}
