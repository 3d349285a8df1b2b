package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/session"
)

var (
	// ErrLoginRequired means the caller must send the user to the login page.
	ErrLoginRequired = errors.New("login required")
	ErrNotLoaded     = errors.New("dashboard not loaded")
)

// API is the part of the backend client the dashboard uses.
type API interface {
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
	Profile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error)
	Notifications(ctx context.Context) ([]models.Notification, error)
	Budgets(ctx context.Context) ([]models.Budget, error)
	MonthlyTrends(ctx context.Context) ([]models.MonthlyPoint, error)
	CreateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	CreateBudget(ctx context.Context, b models.Budget) (*models.Budget, error)
	MarkNotificationRead(ctx context.Context, id int64) error
}

// Stale is a set of aggregates that must be fetched again.
type Stale uint8

const (
	StaleSummary Stale = 1 << iota
	StaleProfile
	StaleNotifications
	StaleBudgets
	StaleTrends
)

const (
	StaleNone Stale = 0
	StaleAll  Stale = StaleSummary | StaleProfile | StaleNotifications | StaleBudgets | StaleTrends
)

// transactionStale is what any transaction write invalidates.
const transactionStale = StaleSummary | StaleTrends | StaleBudgets

func (s Stale) Has(part Stale) bool {
	return s&part != 0
}

func (s Stale) String() string {
	if s == StaleNone {
		return "none"
	}
	names := []struct {
		bit  Stale
		name string
	}{
		{StaleSummary, "summary"},
		{StaleProfile, "profile"},
		{StaleNotifications, "notifications"},
		{StaleBudgets, "budgets"},
		{StaleTrends, "trends"},
	}
	out := ""
	for _, n := range names {
		if s.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

type snapshot struct {
	summary       models.DashboardSummary
	profile       models.User
	notifications []models.Notification
	budgets       []models.Budget
	trends        []models.MonthlyPoint
}

// Aggregator owns the raw dashboard data of the signed-in user and the view
// derived from it. All methods are safe for concurrent use.
type Aggregator struct {
	api     API
	session session.Store
	logger  zerolog.Logger

	mu   sync.Mutex
	data *snapshot
	view *View
}

func New(a API, store session.Store) *Aggregator {
	return &Aggregator{
		api:     a,
		session: store,
		logger:  logging.New("dashboard"),
	}
}

// Load fetches every aggregate. Summary and profile are mandatory: when either
// fails the session is cleared and ErrLoginRequired is returned. Without a
// session no request is made.
func (a *Aggregator) Load(ctx context.Context) (*View, error) {
	if _, err := a.session.Get(); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, ErrLoginRequired
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := a.api.Dashboard(gctx)
		if err != nil {
			return err
		}
		s.summary = *summary
		return nil
	})
	g.Go(func() error {
		profile, err := a.api.Profile(gctx)
		if err != nil {
			return err
		}
		s.profile = *profile
		return nil
	})

	// Optional aggregates use the parent context so a mandatory failure does
	// not show up as a spurious optional one in the logs.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		ns, err := a.api.Notifications(ctx)
		a.optional(api.OpNotifications, err)
		s.notifications = orEmpty(ns, err)
	}()
	go func() {
		defer wg.Done()
		bs, err := a.api.Budgets(ctx)
		a.optional(api.OpBudgets, err)
		s.budgets = orEmpty(bs, err)
	}()
	go func() {
		defer wg.Done()
		ts, err := a.api.MonthlyTrends(ctx)
		a.optional(api.OpMonthly, err)
		s.trends = orEmpty(ts, err)
	}()

	err := g.Wait()
	wg.Wait()
	if err != nil {
		if ctx.Err() != nil || api.IsKind(err, api.KindCanceled) {
			return nil, err
		}
		a.logger.Warn().Err(err).Msg("dashboard load failed, clearing session")
		if cerr := a.session.Clear(); cerr != nil {
			a.logger.Error().Err(cerr).Msg("failed to clear session")
		}
		a.data, a.view = nil, nil
		return nil, fmt.Errorf("%w: %w", ErrLoginRequired, err)
	}

	a.data = s
	a.view = buildView(s)
	return a.view, nil
}

func (a *Aggregator) optional(op string, err error) {
	if err == nil || errors.Is(err, context.Canceled) || api.IsKind(err, api.KindCanceled) {
		return
	}
	a.logger.Warn().Err(err).Str(logging.ENDPOINT, op).Msg("optional dashboard data unavailable")
}

func orEmpty[T any](items []T, err error) []T {
	if err != nil || items == nil {
		return []T{}
	}
	return items
}

// View returns the last built view, or ErrNotLoaded.
func (a *Aggregator) View() (*View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return nil, ErrNotLoaded
	}
	return a.view, nil
}

// Refresh re-fetches exactly the stale aggregates. It either applies every
// result or none of them. Refresh before Load falls back to a full Load.
func (a *Aggregator) Refresh(ctx context.Context, stale Stale) (*View, error) {
	a.mu.Lock()
	loaded := a.data != nil
	a.mu.Unlock()
	if !loaded {
		return a.Load(ctx)
	}
	if stale == StaleNone {
		return a.View()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return nil, ErrNotLoaded
	}

	next := *a.data
	g, gctx := errgroup.WithContext(ctx)
	if stale.Has(StaleSummary) {
		g.Go(func() error {
			summary, err := a.api.Dashboard(gctx)
			if err != nil {
				return err
			}
			next.summary = *summary
			return nil
		})
	}
	if stale.Has(StaleProfile) {
		g.Go(func() error {
			profile, err := a.api.Profile(gctx)
			if err != nil {
				return err
			}
			next.profile = *profile
			return nil
		})
	}
	if stale.Has(StaleNotifications) {
		g.Go(func() error {
			ns, err := a.api.Notifications(gctx)
			if err != nil {
				return err
			}
			next.notifications = orEmpty(ns, nil)
			return nil
		})
	}
	if stale.Has(StaleBudgets) {
		g.Go(func() error {
			bs, err := a.api.Budgets(gctx)
			if err != nil {
				return err
			}
			next.budgets = orEmpty(bs, nil)
			return nil
		})
	}
	if stale.Has(StaleTrends) {
		g.Go(func() error {
			ts, err := a.api.MonthlyTrends(gctx)
			if err != nil {
				return err
			}
			next.trends = orEmpty(ts, nil)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if api.IsUnauthorized(err) {
			a.data, a.view = nil, nil
			return nil, fmt.Errorf("%w: %w", ErrLoginRequired, err)
		}
		return nil, fmt.Errorf("failed to refresh %s: %w", stale, err)
	}

	a.data = &next
	a.view = buildView(&next)
	a.logger.Debug().Str("stale", stale.String()).Msg("dashboard refreshed")
	return a.view, nil
}

// AddTransaction creates tx for the signed-in user.
func (a *Aggregator) AddTransaction(ctx context.Context, tx models.Transaction) (Stale, error) {
	a.mu.Lock()
	if a.data != nil && tx.User == 0 {
		tx.User = a.data.profile.ID
	}
	a.mu.Unlock()

	if _, err := a.api.CreateTransaction(ctx, tx); err != nil {
		return StaleNone, err
	}
	return transactionStale, nil
}

func (a *Aggregator) EditTransaction(ctx context.Context, tx models.Transaction) (Stale, error) {
	if tx.ID == 0 {
		return StaleNone, errors.New("transaction has no id")
	}
	if _, err := a.api.UpdateTransaction(ctx, tx); err != nil {
		return StaleNone, err
	}
	return transactionStale, nil
}

func (a *Aggregator) DeleteTransaction(ctx context.Context, id int64) (Stale, error) {
	if err := a.api.DeleteTransaction(ctx, id); err != nil {
		return StaleNone, err
	}
	return transactionStale, nil
}

func (a *Aggregator) AddBudget(ctx context.Context, b models.Budget) (Stale, error) {
	if _, err := a.api.CreateBudget(ctx, b); err != nil {
		return StaleNone, err
	}
	return StaleBudgets, nil
}

// MarkNotificationRead patches the backend and flips the local copy; nothing
// needs to be fetched again.
func (a *Aggregator) MarkNotificationRead(ctx context.Context, id int64) (Stale, error) {
	if err := a.api.MarkNotificationRead(ctx, id); err != nil {
		return StaleNone, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return StaleNone, nil
	}
	next := *a.data
	next.notifications = make([]models.Notification, len(a.data.notifications))
	copy(next.notifications, a.data.notifications)
	for i := range next.notifications {
		if next.notifications[i].ID == id {
			next.notifications[i].IsRead = true
		}
	}
	a.data = &next
	a.view = buildView(&next)
	return StaleNone, nil
}

// UpdateProfile replaces the profile with the backend's response.
func (a *Aggregator) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (Stale, error) {
	user, err := a.api.UpdateProfile(ctx, update)
	if err != nil {
		return StaleNone, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return StaleNone, nil
	}
	next := *a.data
	next.profile = *user
	a.data = &next
	a.view = buildView(&next)
	return StaleNone, nil
}

// Reset drops the cached data, typically on logout.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data, a.view = nil, nil
}
