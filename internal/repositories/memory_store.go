package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ledgerly/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store. Units of work are serialised by a
// single lock and applied copy-on-write, so a failed unit leaves no trace.
// Repositories taken from the store itself must not be used inside a
// WithinTx callback; use the Tx argument instead.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

type memData struct {
	nextWalletID uint
	nextTxID     uint
	nextFlagID   uint
	nextUserID   uint

	wallets      map[uint]models.Wallet // by user id
	transactions map[uint]models.Transaction
	references   map[string]uint
	flags        map[uint]models.FlaggedTransaction // by transaction id
	users        map[uint]models.User
}

func newMemData() *memData {
	return &memData{
		wallets:      make(map[uint]models.Wallet),
		transactions: make(map[uint]models.Transaction),
		references:   make(map[string]uint),
		flags:        make(map[uint]models.FlaggedTransaction),
		users:        make(map[uint]models.User),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextWalletID: d.nextWalletID,
		nextTxID:     d.nextTxID,
		nextFlagID:   d.nextFlagID,
		nextUserID:   d.nextUserID,
		wallets:      make(map[uint]models.Wallet, len(d.wallets)),
		transactions: make(map[uint]models.Transaction, len(d.transactions)),
		references:   make(map[string]uint, len(d.references)),
		flags:        make(map[uint]models.FlaggedTransaction, len(d.flags)),
		users:        make(map[uint]models.User, len(d.users)),
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.references {
		c.references[k] = v
	}
	for k, v := range d.flags {
		c.flags[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	return c
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData(), now: time.Now}
}

func (s *MemoryStore) Wallets() WalletRepository           { return &memWallets{s.rootView()} }
func (s *MemoryStore) Transactions() TransactionRepository { return &memTransactions{s.rootView()} }
func (s *MemoryStore) Flags() FlagRepository               { return &memFlags{s.rootView()} }
func (s *MemoryStore) Users() UserRepository               { return &memUsers{s.rootView()} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memTx{view: &memView{store: s, data: work}}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) rootView() *memView {
	return &memView{store: s}
}

// memView runs repository calls against a unit's working copy, or against
// the committed data under the store lock when data is nil.
type memView struct {
	store *MemoryStore
	data  *memData
}

func (v *memView) run(fn func(d *memData) error) error {
	if v.data != nil {
		return fn(v.data)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (v *memView) now() time.Time {
	return v.store.now().UTC()
}

type memTx struct {
	view *memView
}

func (t *memTx) Wallets() WalletRepository           { return &memWallets{t.view} }
func (t *memTx) Transactions() TransactionRepository { return &memTransactions{t.view} }
func (t *memTx) Flags() FlagRepository               { return &memFlags{t.view} }
func (t *memTx) Users() UserRepository               { return &memUsers{t.view} }

type memWallets struct{ v *memView }

func (r *memWallets) CreateIfAbsent(ctx context.Context, w *models.Wallet) (bool, error) {
	var created bool
	err := r.v.run(func(d *memData) error {
		if _, ok := d.wallets[w.UserID]; ok {
			return nil
		}
		now := r.v.now()
		d.nextWalletID++
		w.ID = d.nextWalletID
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		w.UpdatedAt = now
		d.wallets[w.UserID] = *w
		created = true
		return nil
	})
	return created, err
}

func (r *memWallets) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var out *models.Wallet
	err := r.v.run(func(d *memData) error {
		w, ok := d.wallets[userID]
		if !ok {
			return ErrWalletNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r *memWallets) GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *memWallets) UpdateBalance(ctx context.Context, w *models.Wallet) error {
	if w.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	return r.v.run(func(d *memData) error {
		stored, ok := d.wallets[w.UserID]
		if !ok {
			return ErrWalletNotFound
		}
		if stored.Version != w.Version {
			return ErrVersionConflict
		}
		stored.Balance = w.Balance
		stored.LastTransactionAt = w.LastTransactionAt
		stored.Version++
		stored.UpdatedAt = r.v.now()
		d.wallets[w.UserID] = stored
		w.Version = stored.Version
		return nil
	})
}

func (r *memWallets) SetActive(ctx context.Context, userID uint, active bool) error {
	return r.v.run(func(d *memData) error {
		stored, ok := d.wallets[userID]
		if !ok {
			return ErrWalletNotFound
		}
		stored.IsActive = active
		d.wallets[userID] = stored
		return nil
	})
}

func (r *memWallets) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.v.run(func(d *memData) error {
		for _, w := range d.wallets {
			total = total.Add(w.Balance)
		}
		return nil
	})
	return total, err
}

func (r *memWallets) TopByBalance(ctx context.Context, limit int) ([]models.Wallet, error) {
	var out []models.Wallet
	err := r.v.run(func(d *memData) error {
		for _, w := range d.wallets {
			out = append(out, w)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Balance.Cmp(out[j].Balance); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type memTransactions struct{ v *memView }

func (r *memTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	return r.v.run(func(d *memData) error {
		if _, ok := d.references[tx.Reference]; ok {
			return ErrDuplicateReference
		}
		now := r.v.now()
		d.nextTxID++
		tx.ID = d.nextTxID
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}
		if tx.UpdatedAt.IsZero() {
			tx.UpdatedAt = tx.CreatedAt
		}
		stored := *tx
		stored.Metadata = tx.Metadata.Clone()
		d.transactions[tx.ID] = stored
		d.references[tx.Reference] = tx.ID
		return nil
	})
}

func (r *memTransactions) UpdateStatus(ctx context.Context, id uint, from, to models.TransactionStatus) error {
	return r.v.run(func(d *memData) error {
		stored, ok := d.transactions[id]
		if !ok || stored.IsDeleted {
			return ErrTransactionNotFound
		}
		if stored.Status != from {
			return ErrStatusConflict
		}
		stored.Status = to
		stored.UpdatedAt = r.v.now()
		d.transactions[id] = stored
		return nil
	})
}

func (r *memTransactions) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.v.run(func(d *memData) error {
		tx, ok := d.transactions[id]
		if !ok || tx.IsDeleted {
			return ErrTransactionNotFound
		}
		out = &tx
		return nil
	})
	return out, err
}

func (r *memTransactions) SoftDelete(ctx context.Context, id uint) error {
	return r.v.run(func(d *memData) error {
		tx, ok := d.transactions[id]
		if !ok || tx.IsDeleted {
			return ErrTransactionNotFound
		}
		tx.IsDeleted = true
		tx.UpdatedAt = r.v.now()
		d.transactions[id] = tx
		return nil
	})
}

// filter returns live transactions matching keep, oldest first.
func (r *memTransactions) filter(keep func(tx *models.Transaction) bool) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.v.run(func(d *memData) error {
		for _, tx := range d.transactions {
			if tx.IsDeleted || !keep(&tx) {
				continue
			}
			out = append(out, tx)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (r *memTransactions) ListCompletedBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	return r.filter(func(tx *models.Transaction) bool {
		return tx.Status == models.TransactionStatusCompleted && within(tx.CreatedAt, start, end)
	})
}

func sentBy(tx *models.Transaction, userID uint) bool {
	return tx.FromUserID != nil && *tx.FromUserID == userID
}

func (r *memTransactions) ListCompletedBySource(ctx context.Context, userID uint, since, until time.Time) ([]models.Transaction, error) {
	return r.filter(func(tx *models.Transaction) bool {
		return tx.Status == models.TransactionStatusCompleted &&
			sentBy(tx, userID) &&
			within(tx.CreatedAt, since, until)
	})
}

func (r *memTransactions) RecentCompletedBySource(ctx context.Context, userID uint, until time.Time, limit int) ([]models.Transaction, error) {
	txs, err := r.filter(func(tx *models.Transaction) bool {
		return tx.Status == models.TransactionStatusCompleted &&
			sentBy(tx, userID) &&
			!tx.CreatedAt.After(until)
	})
	if err != nil {
		return nil, err
	}
	reverse(txs)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (r *memTransactions) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error) {
	txs, err := r.filter(func(tx *models.Transaction) bool {
		return tx.Involves(userID)
	})
	if err != nil {
		return nil, 0, err
	}
	reverse(txs)
	return paginate(txs, limit, offset), int64(len(txs)), nil
}

func (r *memTransactions) SummaryByType(ctx context.Context) ([]TypeSummary, error) {
	txs, err := r.filter(func(tx *models.Transaction) bool {
		return tx.Status == models.TransactionStatusCompleted
	})
	if err != nil {
		return nil, err
	}
	byType := map[models.TransactionType]*TypeSummary{}
	for _, tx := range txs {
		s, ok := byType[tx.Type]
		if !ok {
			s = &TypeSummary{Type: tx.Type, TotalAmount: decimal.Zero}
			byType[tx.Type] = s
		}
		s.Count++
		s.TotalAmount = s.TotalAmount.Add(tx.BaseAmount)
	}
	out := make([]TypeSummary, 0, len(byType))
	for _, s := range byType {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *memTransactions) DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	txs, err := r.filter(func(tx *models.Transaction) bool {
		return !tx.CreatedAt.Before(since)
	})
	if err != nil {
		return nil, err
	}
	var out []DailyCount
	for _, tx := range txs {
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Day == day {
			out[n-1].Count++
			continue
		}
		out = append(out, DailyCount{Day: day, Count: 1})
	}
	return out, nil
}

func (r *memTransactions) TopSourcesByVolume(ctx context.Context, limit int) ([]VolumeStat, error) {
	txs, err := r.filter(func(tx *models.Transaction) bool {
		return tx.Status == models.TransactionStatusCompleted && tx.FromUserID != nil
	})
	if err != nil {
		return nil, err
	}
	byUser := map[uint]*VolumeStat{}
	for _, tx := range txs {
		s, ok := byUser[*tx.FromUserID]
		if !ok {
			s = &VolumeStat{UserID: *tx.FromUserID, TotalAmount: decimal.Zero}
			byUser[*tx.FromUserID] = s
		}
		s.Count++
		s.TotalAmount = s.TotalAmount.Add(tx.BaseAmount)
	}
	out := make([]VolumeStat, 0, len(byUser))
	for _, s := range byUser {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memFlags struct{ v *memView }

func (r *memFlags) Exists(ctx context.Context, transactionID uint) (bool, error) {
	var found bool
	err := r.v.run(func(d *memData) error {
		_, found = d.flags[transactionID]
		return nil
	})
	return found, err
}

func (r *memFlags) CreateIfAbsent(ctx context.Context, f *models.FlaggedTransaction) (bool, error) {
	var created bool
	err := r.v.run(func(d *memData) error {
		if _, ok := d.flags[f.TransactionID]; ok {
			return nil
		}
		d.nextFlagID++
		f.ID = d.nextFlagID
		if f.DetectedAt.IsZero() {
			f.DetectedAt = r.v.now()
		}
		d.flags[f.TransactionID] = *f
		created = true
		return nil
	})
	return created, err
}

func (r *memFlags) List(ctx context.Context, limit, offset int) ([]models.FlaggedTransaction, int64, error) {
	var out []models.FlaggedTransaction
	err := r.v.run(func(d *memData) error {
		for _, f := range d.flags {
			out = append(out, f)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.After(out[j].DetectedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, limit, offset), int64(len(out)), nil
}

type memUsers struct{ v *memView }

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	return r.v.run(func(d *memData) error {
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		for _, u := range d.users {
			if u.Email == user.Email {
				return ErrDuplicateUser
			}
		}
		if user.ID == 0 {
			d.nextUserID++
			user.ID = d.nextUserID
		} else if _, ok := d.users[user.ID]; ok {
			return ErrDuplicateUser
		} else if user.ID > d.nextUserID {
			d.nextUserID = user.ID
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = r.v.now()
		}
		user.UpdatedAt = user.CreatedAt
		d.users[user.ID] = *user
		return nil
	})
}

func (r *memUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var out *models.User
	err := r.v.run(func(d *memData) error {
		u, ok := d.users[id]
		if !ok || u.IsDeleted {
			return ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *models.User
	err := r.v.run(func(d *memData) error {
		for _, u := range d.users {
			if u.Email == email && !u.IsDeleted {
				u := u
				out = &u
				return nil
			}
		}
		return ErrUserNotFound
	})
	return out, err
}

func (r *memUsers) Exists(ctx context.Context, id uint) (bool, error) {
	u, err := r.GetByID(ctx, id)
	if err == ErrUserNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Available(), nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func paginate[T any](s []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s) {
		return []T{}
	}
	s = s[offset:]
	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}
