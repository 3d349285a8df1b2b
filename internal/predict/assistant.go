package predict

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/models"
	"budgetbuddy/internal/money"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	// AutoApplyConfidence must be exceeded for a prediction to replace the
	// selected category.
	AutoApplyConfidence = 0.7
)

var ErrClosed = errors.New("assistant closed")

// Predictor is the backend call the assistant drives.
type Predictor interface {
	PredictCategory(ctx context.Context, req models.PredictRequest) (*models.Prediction, error)
}

// Input is the part of a transaction form that feeds predictions.
type Input struct {
	Type        string
	Description string
	Amount      money.Cents
	Date        string
}

type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// State is what the form shows. Applied is set when the latest prediction
// was confident enough and valid for the form's type.
type State struct {
	Seq         uint64       `json:"seq"`
	Pending     bool         `json:"pending"`
	Suggestions []Suggestion `json:"suggestions"`
	Applied     string       `json:"applied,omitempty"`
}

type update struct {
	seq   uint64
	input Input
}

// Assistant debounces form input and asks the backend for a category. Each
// update supersedes the previous one: its timer is stopped, its request is
// canceled and late results are dropped.
type Assistant struct {
	predictor Predictor
	debounce  time.Duration
	logger    zerolog.Logger

	t       tomb.Tomb
	updates chan update

	mu    sync.Mutex
	seq   uint64
	state State
}

func New(p Predictor, debounce time.Duration) *Assistant {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	a := &Assistant{
		predictor: p,
		debounce:  debounce,
		logger:    logging.New("predict"),
		updates:   make(chan update),
		state:     State{Suggestions: []Suggestion{}},
	}
	a.t.Go(a.loop)
	return a
}

// Update records new form input and returns its sequence number. Empty
// descriptions clear the suggestions and schedule nothing.
func (a *Assistant) Update(in Input) (uint64, error) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.state.Seq = seq
	a.state.Applied = ""
	a.state.Pending = strings.TrimSpace(in.Description) != ""
	if !a.state.Pending {
		a.state.Suggestions = []Suggestion{}
	}
	a.mu.Unlock()

	select {
	case a.updates <- update{seq: seq, input: in}:
		return seq, nil
	case <-a.t.Dying():
		return seq, ErrClosed
	}
}

func (a *Assistant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state
	s.Suggestions = append([]Suggestion(nil), a.state.Suggestions...)
	return s
}

// Close stops the worker and cancels any request in flight.
func (a *Assistant) Close() error {
	a.t.Kill(nil)
	return a.t.Wait()
}

func (a *Assistant) loop() error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending update
		cancel  context.CancelFunc = func() {}
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		fire = nil
	}
	defer func() {
		stopTimer()
		cancel()
	}()

	for {
		select {
		case <-a.t.Dying():
			return nil
		case u := <-a.updates:
			cancel()
			stopTimer()
			if strings.TrimSpace(u.input.Description) == "" {
				continue
			}
			pending = u
			timer = time.NewTimer(a.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			u := pending
			a.t.Go(func() error {
				a.predict(ctx, u)
				return nil
			})
		}
	}
}

func (a *Assistant) predict(ctx context.Context, u update) {
	p, err := a.predictor.PredictCategory(ctx, models.PredictRequest{
		Description: strings.TrimSpace(u.input.Description),
		Amount:      u.input.Amount,
		Date:        u.input.Date,
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if u.seq != a.seq {
		return
	}
	a.state.Pending = false
	if err != nil {
		if !api.IsKind(err, api.KindCanceled) {
			a.logger.Debug().Err(err).Msg("category prediction failed")
		}
		return
	}

	a.state.Suggestions = Rank(p)
	if p.Confidence > AutoApplyConfidence && models.IsCategory(u.input.Type, p.Category) {
		a.state.Applied = p.Category
	}
}

// Rank lists the primary prediction and its alternatives by confidence,
// highest first, one entry per category.
func Rank(p *models.Prediction) []Suggestion {
	out := []Suggestion{}
	if p == nil {
		return out
	}
	seen := map[string]bool{}
	add := func(category string, confidence float64) {
		if category == "" || seen[category] {
			return
		}
		seen[category] = true
		out = append(out, Suggestion{Category: category, Confidence: confidence})
	}
	add(p.Category, p.Confidence)
	for _, alt := range p.Alternatives {
		add(alt.Category, alt.Confidence)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
