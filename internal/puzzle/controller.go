package puzzle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ErrRecommender wraps failures of the recommendation engine.
var ErrRecommender = errors.New("recommender failed")

// Broker produces the next candidate group for a session.
type Broker interface {
	Recommend(ctx context.Context, view View) (Recommendation, error)
}

// DefaultMaxMistakes is how many rejected groups a session tolerates.
const DefaultMaxMistakes = 4

// Controller runs one solving session. It owns the pending recommendation
// and serializes every operation on the session.
type Controller struct {
	mu          sync.Mutex
	id          string
	broker      Broker
	maxMistakes int

	session    *Session
	life       *lifecycle
	pending    *Recommendation
	inFlight   bool
	generation uint64
	updatedAt  time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxMistakes sets the mistake budget. Zero or less disables it.
func WithMaxMistakes(n int) Option {
	return func(c *Controller) { c.maxMistakes = n }
}

// NewController returns a controller in the awaiting-setup state.
func NewController(id string, broker Broker, opts ...Option) (*Controller, error) {
	if broker == nil {
		return nil, errors.New("puzzle: nil broker")
	}
	life, err := newLifecycle(id)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		id:          id,
		broker:      broker,
		maxMistakes: DefaultMaxMistakes,
		life:        life,
		updatedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the session identifier the controller was created with.
func (c *Controller) ID() string { return c.id }

// Setup starts a new puzzle over words, discarding any previous state.
func (c *Controller) Setup(words []string) (Snapshot, error) {
	session, err := NewSession(words)
	if err != nil {
		return Snapshot{}, err
	}
	life, err := newLifecycle(c.id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := life.fire(eventSetup); err != nil {
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.life = life
	c.pending = nil
	c.inFlight = false
	c.generation++
	c.touch()
	log.Info().Str("session", c.id).Int("words", len(session.Words)).Msg("puzzle set up")
	return c.snapshotLocked(), nil
}

// Recommend asks the broker for the next group and holds it as pending.
func (c *Controller) Recommend(ctx context.Context) (Recommendation, error) {
	c.mu.Lock()
	if err := c.requireOpenLocked(); err != nil {
		c.mu.Unlock()
		return Recommendation{}, err
	}
	if c.pending != nil || c.inFlight {
		c.mu.Unlock()
		return Recommendation{}, ErrAlreadyPending
	}
	view := c.session.View()
	gen := c.generation
	c.inFlight = true
	c.mu.Unlock()

	rec, err := c.broker.Recommend(ctx, view)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return Recommendation{}, fmt.Errorf("%w: session was reset while recommending", ErrNoSession)
	}
	c.inFlight = false
	if err != nil {
		log.Warn().Err(err).Str("session", c.id).Msg("recommendation failed")
		return Recommendation{}, fmt.Errorf("%w: %w", ErrRecommender, err)
	}
	rec.Group.Words = cleanWords(rec.Group.Words)
	if err := c.session.checkGroup(rec.Group.Words); err != nil {
		return Recommendation{}, fmt.Errorf("%w: %s returned an unusable group: %v", ErrRecommender, rec.Recommender, err)
	}
	if err := c.life.fire(eventRecommend); err != nil {
		return Recommendation{}, err
	}
	stored := Recommendation{Group: rec.Group.Clone(), Recommender: rec.Recommender}
	c.pending = &stored
	c.touch()
	log.Info().
		Str("session", c.id).
		Str("recommender", rec.Recommender).
		Strs("group", rec.Group.Words).
		Msg("recommendation pending")
	return Recommendation{Group: stored.Group.Clone(), Recommender: stored.Recommender}, nil
}

// SubmitFeedback applies v to the pending recommendation. When echoed is
// not empty it must match the pending group, which catches clients that
// answer a recommendation the server no longer holds.
func (c *Controller) SubmitFeedback(v Verdict, echoed []string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return Snapshot{}, err
	}
	if c.pending == nil {
		return Snapshot{}, ErrNoPendingRecommendation
	}
	if len(echoed) > 0 && !c.pending.Group.SameWords(cleanWords(echoed)) {
		return Snapshot{}, validationf("feedback names a group that is not the pending recommendation")
	}

	outcome, err := ApplyVerdict(c.session, c.pending.Group, v, c.maxMistakes)
	if err != nil {
		return Snapshot{}, err
	}

	event := eventResolve
	switch outcome {
	case OutcomeSolved:
		event = eventSolve
	case OutcomeFailed:
		event = eventFail
	}
	if err := c.life.fire(event); err != nil {
		return Snapshot{}, err
	}
	c.pending = nil
	c.touch()

	logEvent := log.Info().Str("session", c.id).Int("remaining", len(c.session.Remaining))
	if v.Color != "" {
		logEvent.Str("color", string(v.Color)).Msg("group confirmed")
	} else {
		logEvent.Str("error_type", string(v.ErrorType)).Int("mistakes", c.session.Mistakes).Msg("group rejected")
	}
	return c.snapshotLocked(), nil
}

// Override replaces the pending recommendation with a human choice.
func (c *Controller) Override(words []string, reason string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return Snapshot{}, err
	}
	if c.pending == nil {
		return Snapshot{}, ErrNoPendingRecommendation
	}
	group, err := ValidateOverride(c.session, words, reason)
	if err != nil {
		return Snapshot{}, err
	}
	c.pending = &Recommendation{Group: group, Recommender: RecommenderManual}
	c.touch()
	log.Info().Str("session", c.id).Strs("group", group.Words).Msg("recommendation overridden")
	return c.snapshotLocked(), nil
}

// Terminate closes the session. History is kept and calling it again is a
// no-op.
func (c *Controller) Terminate() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.life.can(eventTerminate) {
		if err := c.life.fire(eventTerminate); err != nil {
			log.Error().Err(err).Str("session", c.id).Msg("terminate transition failed")
		}
		log.Info().Str("session", c.id).Msg("session terminated")
	}
	c.pending = nil
	c.inFlight = false
	c.generation++
	c.touch()
	return c.snapshotLocked()
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.life.status()
}

// Pending returns the pending recommendation, if any.
func (c *Controller) Pending() (Recommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Recommendation{}, false
	}
	return Recommendation{Group: c.pending.Group.Clone(), Recommender: c.pending.Recommender}, true
}

// UpdatedAt reports when the session last changed.
func (c *Controller) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Snapshot returns the full observable state of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) requireOpenLocked() error {
	status := c.life.status()
	if c.session == nil || !status.Open() {
		return fmt.Errorf("%w: session is %s", ErrNoSession, status)
	}
	return nil
}

func (c *Controller) touch() {
	c.updatedAt = time.Now()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:      c.id,
		Status:         c.life.status(),
		Words:          []string{},
		RemainingWords: []string{},
		CorrectGroups:  map[Color]Group{},
		InvalidGroups:  []InvalidAttempt{},
		MaxMistakes:    c.maxMistakes,
		UpdatedAt:      c.updatedAt,
	}
	if c.session != nil {
		view := c.session.View()
		snap.Words = append(snap.Words, c.session.Words...)
		snap.RemainingWords = view.RemainingWords
		snap.CorrectGroups = view.CorrectGroups
		snap.InvalidGroups = view.InvalidAttempts
		snap.Mistakes = view.Mistakes
	}
	if c.pending != nil {
		p := Recommendation{Group: c.pending.Group.Clone(), Recommender: c.pending.Recommender}
		snap.Pending = &p
	}
	return snap
}

// Restore replaces the controller state with snap after checking that snap
// describes a consistent session.
func (c *Controller) Restore(snap Snapshot) error {
	life, err := restoreLifecycle(c.id, snap.Status)
	if err != nil {
		return err
	}
	if (snap.Pending != nil) != (snap.Status == StatusAwaitingFeedback) {
		return fmt.Errorf("snapshot status %s disagrees with pending recommendation", snap.Status)
	}

	var session *Session
	if snap.Status != StatusAwaitingSetup && len(snap.Words) > 0 {
		session, err = restoreSession(snap)
		if err != nil {
			return err
		}
		if err := checkRestoredStatus(session, snap.Status); err != nil {
			return err
		}
		if snap.Pending != nil {
			if err := session.checkGroup(snap.Pending.Group.Words); err != nil {
				return fmt.Errorf("snapshot pending recommendation: %w", err)
			}
		}
	} else if snap.Status != StatusAwaitingSetup && snap.Status != StatusTerminated {
		return fmt.Errorf("snapshot status %s has no words", snap.Status)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.life = life
	c.pending = nil
	if snap.Pending != nil {
		p := Recommendation{Group: snap.Pending.Group.Clone(), Recommender: snap.Pending.Recommender}
		c.pending = &p
	}
	c.inFlight = false
	c.generation++
	c.updatedAt = snap.UpdatedAt
	if c.updatedAt.IsZero() {
		c.touch()
	}
	return nil
}

func restoreSession(snap Snapshot) (*Session, error) {
	s, err := NewSession(snap.Words)
	if err != nil {
		return nil, err
	}
	confirmed := []string{}
	for color, g := range snap.CorrectGroups {
		if _, ok := ParseColor(string(color)); !ok {
			return nil, fmt.Errorf("snapshot holds unknown color %q", color)
		}
		if err := checkStoredGroup(s, g.Words); err != nil {
			return nil, fmt.Errorf("snapshot %s group: %w", color, err)
		}
		confirmed = append(confirmed, g.Words...)
		s.Correct[color] = g.Clone()
	}
	if dups := lo.FindDuplicates(confirmed); len(dups) > 0 {
		return nil, fmt.Errorf("snapshot confirms %s under more than one color", strings.Join(dups, ", "))
	}
	if len(lo.Intersect(confirmed, snap.RemainingWords)) > 0 {
		return nil, errors.New("snapshot lists confirmed words as remaining")
	}
	if !lo.ElementsMatch(append(append([]string{}, confirmed...), snap.RemainingWords...), s.Words) {
		return nil, errors.New("snapshot words do not add up to the puzzle")
	}
	for i, a := range snap.InvalidGroups {
		if err := checkStoredGroup(s, a.Words); err != nil {
			return nil, fmt.Errorf("snapshot invalid group %d: %w", i, err)
		}
		if _, ok := ParseErrorType(string(a.ErrorType)); !ok {
			return nil, fmt.Errorf("snapshot invalid group %d has unknown error type %q", i, a.ErrorType)
		}
	}
	if snap.Mistakes != len(snap.InvalidGroups) {
		return nil, fmt.Errorf("snapshot counts %d mistakes for %d invalid groups", snap.Mistakes, len(snap.InvalidGroups))
	}
	s.Remaining = append([]string(nil), snap.RemainingWords...)
	s.Invalid = cloneInvalid(snap.InvalidGroups)
	s.Mistakes = snap.Mistakes
	return s, nil
}

// checkStoredGroup checks a group read back from a snapshot: four distinct
// words of the puzzle.
func checkStoredGroup(s *Session, words []string) error {
	if len(words) != GroupSize {
		return fmt.Errorf("group must contain %d words, got %d", GroupSize, len(words))
	}
	if dups := lo.FindDuplicates(words); len(dups) > 0 {
		return fmt.Errorf("group repeats %s", strings.Join(dups, ", "))
	}
	if unknown := lo.Without(words, s.Words...); len(unknown) > 0 {
		return fmt.Errorf("group holds words outside the puzzle: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func checkRestoredStatus(s *Session, status Status) error {
	switch status {
	case StatusSolved:
		if !s.Solved() {
			return fmt.Errorf("snapshot is solved with %d of %d colors confirmed", len(s.Correct), len(Colors))
		}
	case StatusFailed:
		if s.Solved() || s.Mistakes == 0 {
			return errors.New("snapshot is failed without any mistakes")
		}
	case StatusInProgress, StatusAwaitingFeedback:
		if s.Solved() {
			return fmt.Errorf("snapshot is %s with every color confirmed", status)
		}
	}
	return nil
}
