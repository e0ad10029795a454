// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"economy-ledger/internal/balance"
	"economy-ledger/internal/domain"
	"economy-ledger/internal/repository"
	"economy-ledger/internal/util"
)

// LedgerService defines the account ledger operations.
//
// Reads and mutations on an unknown identifier create the account first; use
// HasAccount or GetAccount to query without side effects. Identifiers that parse
// as a UUID become player accounts, anything else a virtual account.
type LedgerService interface {
	HasAccount(ctx context.Context, id string) bool
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetOrCreateAccount(ctx context.Context, id string, virtual bool) (*domain.Account, error)
	GetOrCreatePlayerAccount(ctx context.Context, playerID uuid.UUID) (*domain.Account, error)
	GetOrCreateVirtualAccount(ctx context.Context, name string) (*domain.Account, error)
	Accounts(ctx context.Context) []string

	GetBalance(ctx context.Context, id string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, id string, amount decimal.Decimal) error
	AddToBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)

	GetJob(ctx context.Context, id string) (string, error)
	SetJob(ctx context.Context, id, job string) error
	NotificationsEnabled(ctx context.Context, id string) (bool, error)
	ToggleNotifications(ctx context.Context, id string) (bool, error)

	DefaultCurrency() domain.Currency
	Currencies() []domain.Currency
	SaveLedger(ctx context.Context) error
}

// Option configures a ledgerService.
type Option func(*ledgerService)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ledgerService) {
		s.logger = logger
	}
}

// WithCurrency sets the default currency. Defaults to USD named "Dollar".
func WithCurrency(c domain.Currency) Option {
	return func(s *ledgerService) {
		s.currency = c
	}
}

// WithStartingBalance sets the balance of newly created accounts. Defaults to 0.00.
func WithStartingBalance(amount decimal.Decimal) Option {
	return func(s *ledgerService) {
		s.startingBalance = amount
	}
}

// WithOverdraft controls whether balances may go below zero. Allowed by default.
func WithOverdraft(allow bool) Option {
	return func(s *ledgerService) {
		s.allowOverdraft = allow
	}
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	store  repository.DocumentStore
	logger *slog.Logger

	currency        domain.Currency
	startingBalance decimal.Decimal
	allowOverdraft  bool

	mu     sync.RWMutex     // guards doc
	doc    *domain.Document // owned mirror of the persisted document
	saveMu sync.Mutex       // orders snapshots and saves

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // one per account identifier
}

// NewLedgerService loads the document from store and returns a ready ledger.
// A store that cannot be loaded is an error: starting empty would overwrite it on the next save.
func NewLedgerService(ctx context.Context, store repository.DocumentStore, opts ...Option) (LedgerService, error) {
	s := &ledgerService{
		store:           store,
		logger:          slog.Default(),
		startingBalance: balance.Zero,
		allowOverdraft:  true,
		locks:           make(map[string]*sync.Mutex),
	}
	s.currency, _ = domain.NewCurrency("USD", "Dollar")

	for _, opt := range opts {
		opt(s)
	}

	start, err := balance.Rescale(s.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("new ledger: starting balance: %w", err)
	}
	s.startingBalance = start

	doc, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("new ledger: failed to load accounts: %w", err)
	}
	s.doc = doc

	s.logger.Info("Account ledger loaded",
		"accounts", doc.Len(),
		"currency", s.currency.Code,
		"starting_balance", start.StringFixed(balance.Scale),
	)
	return s, nil
}

// accountLock returns the mutex serializing read-modify-write cycles on id.
// Locks are never released; the map grows with the document, which never deletes accounts.
func (s *ledgerService) accountLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// normalize validates an identifier and reports whether it names a player.
func normalize(id string) (string, bool, error) {
	if strings.TrimSpace(id) == "" {
		return "", false, fmt.Errorf("%w: empty account identifier", util.ErrInvalidInput)
	}
	canonical, player := domain.CanonicalID(id)
	return canonical, player, nil
}

// save writes a snapshot of the current document. Snapshots are taken under
// saveMu so a later save never carries older state than an earlier one.
func (s *ledgerService) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	snapshot := s.doc.Clone()
	s.mu.RUnlock()

	if err := s.store.Save(ctx, snapshot); err != nil {
		if !util.IsError(err, util.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", util.ErrStorageUnavailable, err)
		}
		return err
	}
	return nil
}

// HasAccount reports whether any record exists under id. It never creates one.
func (s *ledgerService) HasAccount(_ context.Context, id string) bool {
	id, _, err := normalize(id)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Has(id)
}

// Accounts lists every account identifier in key order.
func (s *ledgerService) Accounts(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Keys()
}

// GetAccount returns a snapshot of an existing account.
func (s *ledgerService) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	id, _, err := normalize(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.doc.Has(id) {
		return nil, fmt.Errorf("get account %q: %w", id, util.ErrAccountNotFound)
	}
	return s.accountLocked(id)
}

// virtualLocked reports whether the record of id is a virtual account, i.e.
// carries neither a job nor a notification flag. Caller holds s.mu.
func (s *ledgerService) virtualLocked(id string) bool {
	return !s.doc.Has(id, domain.AttrJob) && !s.doc.Has(id, domain.AttrNotifications)
}

// requirePlayer rejects player-only attributes on virtual accounts.
func (s *ledgerService) requirePlayer(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.virtualLocked(id) {
		return fmt.Errorf("%w: account %q is virtual and has no job attributes", util.ErrInvalidInput, id)
	}
	return nil
}

// accountLocked builds an Account from the stored record. Caller holds s.mu.
func (s *ledgerService) accountLocked(id string) (*domain.Account, error) {
	bal, err := s.balanceLocked(id)
	if err != nil {
		return nil, err
	}
	if s.virtualLocked(id) {
		return domain.NewVirtualAccount(id, s.currency, bal), nil
	}

	var acct *domain.Account
	if playerID, err := uuid.Parse(id); err == nil {
		acct = domain.NewPlayerAccount(playerID, s.currency, bal)
	} else {
		// Hand-edited records may carry player attributes under a non-UUID key.
		acct = &domain.Account{ID: id, Balance: bal, Currency: s.currency}
	}
	acct.Job, _ = s.doc.Get(id, domain.AttrJob)
	acct.NotificationsEnabled, err = s.notificationsLocked(id)
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *ledgerService) balanceLocked(id string) (decimal.Decimal, error) {
	raw, ok := s.doc.Get(id, s.currency.BalanceKey())
	if !ok {
		return balance.Zero, fmt.Errorf("account %q has no %s: %w", id, s.currency.BalanceKey(), util.ErrInvalidBalanceFormat)
	}
	bal, err := balance.ParseExact(raw)
	if err != nil {
		return balance.Zero, fmt.Errorf("account %q: %w", id, err)
	}
	return bal, nil
}

// notificationsLocked reads the flag; a missing flag (virtual accounts) reads as false.
func (s *ledgerService) notificationsLocked(id string) (bool, error) {
	raw, ok := s.doc.Get(id, domain.AttrNotifications)
	if !ok {
		return false, nil
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("account %q: %w: %s %q", id, util.ErrInvalidInput, domain.AttrNotifications, raw)
	}
	return enabled, nil
}

// createLocked writes the default record for id if none exists. Caller holds
// the account lock. It reports whether a record was written.
func (s *ledgerService) createLocked(id string, virtual bool) (bool, error) {
	start, err := balance.Format(s.startingBalance)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Has(id) {
		return false, nil
	}
	s.doc.Set(start, id, s.currency.BalanceKey())
	if !virtual {
		s.doc.Set(domain.DefaultJob, id, domain.AttrJob)
		s.doc.Set(strconv.FormatBool(true), id, domain.AttrNotifications)
	}
	return true, nil
}

// ensureLocked creates id when missing and persists it. Caller holds the
// account lock. A failed save is logged and returned; the record stays in memory.
func (s *ledgerService) ensureLocked(ctx context.Context, id string, virtual bool) error {
	created, err := s.createLocked(id, virtual)
	if err != nil || !created {
		return err
	}

	s.logger.Debug("Account created", "account_id", id, "virtual", virtual)
	if err := s.save(ctx); err != nil {
		s.logger.Warn("Could not save new account", "account_id", id, "error", err)
		return fmt.Errorf("create account %q: %w", id, err)
	}
	return nil
}

// ensureForRead creates id on behalf of a read. Creation save failures are
// already logged and do not fail the read.
func (s *ledgerService) ensureForRead(ctx context.Context, id string, player bool) error {
	err := s.ensureLocked(ctx, id, !player)
	if err != nil && !util.IsError(err, util.ErrStorageUnavailable) {
		return err
	}
	return nil
}

// GetOrCreateAccount returns the account for id, creating it with default values if absent.
// When the new record cannot be saved, the in-memory account is still returned
// together with an error wrapping util.ErrStorageUnavailable.
func (s *ledgerService) GetOrCreateAccount(ctx context.Context, id string, virtual bool) (*domain.Account, error) {
	id, player, err := normalize(id)
	if err != nil {
		return nil, err
	}
	if !virtual && !player {
		return nil, fmt.Errorf("%w: player account identifier %q is not a UUID", util.ErrInvalidInput, id)
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	saveErr := s.ensureLocked(ctx, id, virtual)
	if saveErr != nil && !util.IsError(saveErr, util.ErrStorageUnavailable) {
		return nil, saveErr
	}

	s.mu.RLock()
	acct, err := s.accountLocked(id)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return acct, saveErr
}

// GetOrCreatePlayerAccount is GetOrCreateAccount for a player UUID.
func (s *ledgerService) GetOrCreatePlayerAccount(ctx context.Context, playerID uuid.UUID) (*domain.Account, error) {
	return s.GetOrCreateAccount(ctx, playerID.String(), false)
}

// GetOrCreateVirtualAccount is GetOrCreateAccount for a non-player entity.
func (s *ledgerService) GetOrCreateVirtualAccount(ctx context.Context, name string) (*domain.Account, error) {
	return s.GetOrCreateAccount(ctx, name, true)
}

// GetBalance returns the balance of id, creating the account if needed.
// A malformed stored value yields 0.00 and a balance error, never a coerced amount.
func (s *ledgerService) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	id, player, err := normalize(id)
	if err != nil {
		return balance.Zero, err
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureForRead(ctx, id, player); err != nil {
		return balance.Zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(id)
}

// SetBalance replaces the balance of id.
func (s *ledgerService) SetBalance(ctx context.Context, id string, amount decimal.Decimal) error {
	_, err := s.updateBalance(ctx, "set balance", id, func(decimal.Decimal) (decimal.Decimal, error) {
		return balance.Rescale(amount)
	})
	return err
}

// AddToBalance adds amount (negative for a debit) to the balance of id and returns the new balance.
func (s *ledgerService) AddToBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.updateBalance(ctx, "add to balance", id, func(current decimal.Decimal) (decimal.Decimal, error) {
		return balance.Add(current, amount)
	})
}

// updateBalance runs a read-modify-write of one balance inside the account's critical section.
func (s *ledgerService) updateBalance(ctx context.Context, op, id string, next func(decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	id, player, err := normalize(id)
	if err != nil {
		return balance.Zero, err
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureForRead(ctx, id, player); err != nil {
		return balance.Zero, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	current, err := s.balanceLocked(id)
	if err != nil {
		s.mu.Unlock()
		return balance.Zero, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := next(current)
	if err != nil {
		s.mu.Unlock()
		return current, fmt.Errorf("%s: %w", op, err)
	}
	if !s.allowOverdraft && updated.IsNegative() {
		s.mu.Unlock()
		return current, fmt.Errorf("%s: account %q: %w", op, id, util.ErrInsufficientFunds)
	}
	s.doc.Set(updated.StringFixed(balance.Scale), id, s.currency.BalanceKey())
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		s.logger.Warn("Could not save balance change", "account_id", id, "balance", updated.StringFixed(balance.Scale), "error", err)
		return updated, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// GetJob returns the stored job label. Virtual accounts have none.
func (s *ledgerService) GetJob(ctx context.Context, id string) (string, error) {
	id, player, err := normalize(id)
	if err != nil {
		return "", err
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureForRead(ctx, id, player); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	job, _ := s.doc.Get(id, domain.AttrJob)
	return job, nil
}

// SetJob stores a new job label. Virtual accounts have no job and are rejected.
func (s *ledgerService) SetJob(ctx context.Context, id, job string) error {
	id, player, err := normalize(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(job) == "" {
		return fmt.Errorf("%w: empty job label", util.ErrInvalidInput)
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureForRead(ctx, id, player); err != nil {
		return fmt.Errorf("set job: %w", err)
	}
	if err := s.requirePlayer(id); err != nil {
		return fmt.Errorf("set job: %w", err)
	}

	s.mu.Lock()
	s.doc.Set(job, id, domain.AttrJob)
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		s.logger.Warn("Could not save job change", "account_id", id, "job", job, "error", err)
		return fmt.Errorf("set job: %w", err)
	}
	return nil
}

// NotificationsEnabled returns the job notification preference of id.
func (s *ledgerService) NotificationsEnabled(ctx context.Context, id string) (bool, error) {
	id, player, err := normalize(id)
	if err != nil {
		return false, err
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureForRead(ctx, id, player); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notificationsLocked(id)
}

// ToggleNotifications flips the job notification preference and returns the new value.
// Virtual accounts carry no preference and are rejected with util.ErrInvalidInput.
// If the change cannot be saved it stays in memory and the error wraps util.ErrStorageUnavailable.
func (s *ledgerService) ToggleNotifications(ctx context.Context, id string) (bool, error) {
	id, player, err := normalize(id)
	if err != nil {
		return false, err
	}

	lock := s.accountLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureForRead(ctx, id, player); err != nil {
		return false, fmt.Errorf("toggle notifications: %w", err)
	}
	if err := s.requirePlayer(id); err != nil {
		return false, fmt.Errorf("toggle notifications: %w", err)
	}

	s.mu.Lock()
	current, err := s.notificationsLocked(id)
	if err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("toggle notifications: %w", err)
	}
	enabled := !current
	s.doc.Set(strconv.FormatBool(enabled), id, domain.AttrNotifications)
	s.mu.Unlock()

	if err := s.save(ctx); err != nil {
		s.logger.Warn("Could not save notification change", "account_id", id, "error", err)
		return enabled, fmt.Errorf("toggle notifications: %w", err)
	}
	s.logger.Debug("Job notifications toggled", "account_id", id, "enabled", enabled)
	return enabled, nil
}

// DefaultCurrency returns the ledger's currency.
func (s *ledgerService) DefaultCurrency() domain.Currency {
	return s.currency
}

// Currencies lists the supported currencies; there is exactly one.
func (s *ledgerService) Currencies() []domain.Currency {
	return []domain.Currency{s.currency}
}

// SaveLedger forces a save of the whole document.
func (s *ledgerService) SaveLedger(ctx context.Context) error {
	if err := s.save(ctx); err != nil {
		s.logger.Error("Could not save the account ledger", "error", err)
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
