// Package feed implements the event feed screen: one fetch per
// activation, a three-way view state, and the per-row display transform.
package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "eventfeed/internal/log"
	"eventfeed/internal/model"
)

// Fixed screen texts.
const (
	HeaderTitle        = "Upcoming Events"
	LoadingMessage     = "Loading…"
	EmptyMessage       = "No events found."
	SignUpLabel        = "Sign Up"
	NoSignUpText       = "Sign-up link not available"
	MaxDescriptionRows = 3
)

// Phase is the view state of a Screen.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseError
	PhaseLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// State is a snapshot of the screen. Message is set only for PhaseError,
// Items only for PhaseLoaded.
type State struct {
	Phase   Phase
	Message string
	Items   []model.RawRow
}

// Fetcher returns the rows to show. It is called once per activation.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.RawRow, error)
}

// URLOpener hands an external URL to whatever opens links on the
// current platform.
type URLOpener interface {
	OpenURL(ctx context.Context, rawURL string) error
}

// Card is one rendered row.
type Card struct {
	// Key identifies the row within this activation. StableKey is false
	// when Key was generated because the row had neither id nor href.
	Key       string
	StableKey bool

	model.DisplayEvent
}

// HasSignUp reports whether the card offers a sign-up action.
func (c Card) HasSignUp() bool { return c.SignUpURL != "" }

// Screen holds the state of one mounted event feed. A Screen is
// activated at most once; create a new one for every fetch cycle.
type Screen struct {
	fetcher Fetcher
	opener  URLOpener
	loc     *time.Location

	mu          sync.Mutex
	state       State
	keys        []string
	stable      []bool
	activated   bool
	deactivated bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewScreen creates a screen in the loading state. opener may be nil, in
// which case sign-up actions are logged and dropped. A nil loc means
// time.Local.
func NewScreen(f Fetcher, opener URLOpener, loc *time.Location) *Screen {
	if loc == nil {
		loc = time.Local
	}
	return &Screen{
		fetcher: f,
		opener:  opener,
		loc:     loc,
		state:   State{Phase: PhaseLoading},
		done:    make(chan struct{}),
	}
}

// Activate starts the fetch in the background and returns immediately.
// The fetch runs under a child of ctx that Deactivate cancels. Calling
// Activate more than once has no effect.
func (s *Screen) Activate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activated || s.deactivated {
		return
	}
	s.activated = true

	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(fetchCtx)
}

func (s *Screen) run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	items, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// A result that lands after teardown is dropped.
	if s.deactivated {
		appLog.Debug("feed result discarded after deactivation")
		return
	}

	if err != nil {
		s.state = State{Phase: PhaseError, Message: err.Error()}
		return
	}

	s.state = State{Phase: PhaseLoaded, Items: items}
	s.keys = make([]string, len(items))
	s.stable = make([]bool, len(items))
	for i, row := range items {
		s.keys[i], s.stable[i] = RowKey(row)
	}
}

// Deactivate cancels an in-flight fetch. The state is frozen from here on.
func (s *Screen) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivated = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the fetch has settled or ctx is done, and returns the
// state at that point.
func (s *Screen) Wait(ctx context.Context) State {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return s.State()
}

// State returns the current state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cards transforms the loaded rows in API order. It returns nil unless
// the screen is loaded.
func (s *Screen) Cards() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseLoaded {
		return nil
	}

	cards := make([]Card, len(s.state.Items))
	for i, row := range s.state.Items {
		cards[i] = Card{
			Key:          s.keys[i],
			StableKey:    s.stable[i],
			DisplayEvent: Transform(row, s.loc),
		}
	}
	return cards
}

// SignUp opens the sign-up link of the card with the given key. Failures
// are logged and otherwise ignored; the screen state never changes. It
// reports whether the link was handed to the opener successfully.
func (s *Screen) SignUp(ctx context.Context, key string) bool {
	link, err := s.signUpLink(key)
	if err == nil {
		if s.opener == nil {
			err = errors.New("no url opener configured")
		} else {
			err = s.opener.OpenURL(ctx, link)
		}
	}
	if err != nil {
		appLog.Error("failed to open sign-up link", err, "key", key)
		return false
	}
	appLog.Info("sign-up link opened", "key", key)
	return true
}

func (s *Screen) signUpLink(key string) (string, error) {
	for _, c := range s.Cards() {
		if c.Key != key {
			continue
		}
		if !c.HasSignUp() {
			return "", errors.New("event has no sign-up link")
		}
		return c.SignUpURL, nil
	}
	return "", errors.New("no event with this key")
}

// RowKey picks the identity of a row: its id, then its href, then a random
// UUID. The second result is false for the random fallback.
func RowKey(row model.RawRow) (string, bool) {
	if id := strings.TrimSpace(row.ID); id != "" {
		return id, true
	}
	if href := strings.TrimSpace(row.Href); href != "" {
		return href, true
	}
	return uuid.NewString(), false
}
