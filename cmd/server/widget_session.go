package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KAMASDM/augustina/internal/calculator"
	"github.com/KAMASDM/augustina/internal/metrics"
)

const widgetCookieName = "augustina_widget"

// errWidgetLimit is returned when the store is full of active widgets.
var errWidgetLimit = errors.New("too many active calculator widgets")

// widget is one browser's calculator. mu serializes every operation on calc.
type widget struct {
	mu       sync.Mutex
	calc     *calculator.Calculator
	lastSeen time.Time
}

// widgetStore keeps calculator widgets in memory, keyed by a signed cookie.
type widgetStore struct {
	secret  []byte
	idle    time.Duration
	max     int
	presets []calculator.Preset
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time

	mu      sync.Mutex
	widgets map[string]*widget
}

// newWidgetStore signs cookies with secret. An empty secret gets a random
// key, so cookies do not survive a restart. At most max widgets are kept.
func newWidgetStore(secret string, idle time.Duration, maxWidgets int, presets []calculator.Preset, logger *zap.Logger, m *metrics.Collector) (*widgetStore, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate widget key: %w", err)
		}
	}
	return &widgetStore{
		secret:  key,
		idle:    idle,
		max:     maxWidgets,
		presets: presets,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		widgets: make(map[string]*widget),
	}, nil
}

func (s *widgetStore) sign(id string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(id))
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}

func (s *widgetStore) verify(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	provided, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(provided, mac.Sum(nil)) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil || len(decoded) == 0 {
		return "", false
	}
	return string(decoded), true
}

// acquire returns the caller's widget, creating one and setting the cookie
// when the request carries no valid widget. The widget is returned locked;
// call release when done. Only mutating requests should create widgets.
func (s *widgetStore) acquire(w http.ResponseWriter, r *http.Request) (*widget, error) {
	id := ""
	if cookie, err := r.Cookie(widgetCookieName); err == nil {
		id, _ = s.verify(cookie.Value)
	}

	s.mu.Lock()
	wg, ok := s.widgets[id]
	if !ok {
		if len(s.widgets) >= s.max {
			s.pruneLocked()
		}
		if len(s.widgets) >= s.max {
			s.mu.Unlock()
			return nil, errWidgetLimit
		}
		calc, err := calculator.New(s.presets)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		id = uuid.NewString()
		wg = &widget{calc: calc}
		s.widgets[id] = wg
		s.setCookie(w, id)
	}
	wg.lastSeen = s.now()
	count := len(s.widgets)
	s.mu.Unlock()

	s.metrics.SetActiveWidgets(count)
	wg.mu.Lock()
	return wg, nil
}

// peek returns the caller's widget without creating one.
func (s *widgetStore) peek(r *http.Request) (*widget, bool) {
	cookie, err := r.Cookie(widgetCookieName)
	if err != nil {
		return nil, false
	}
	id, ok := s.verify(cookie.Value)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	wg, ok := s.widgets[id]
	if ok {
		wg.lastSeen = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	wg.mu.Lock()
	return wg, true
}

func (wg *widget) release() {
	wg.mu.Unlock()
}

func (s *widgetStore) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     widgetCookieName,
		Value:    s.sign(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// view returns the caller's widget when it has one, or an unstored calculator
// otherwise. Either way the returned release func must be called.
func (s *widgetStore) view(r *http.Request) (*calculator.Calculator, func(), error) {
	if wg, ok := s.peek(r); ok {
		return wg.calc, wg.release, nil
	}
	calc, err := calculator.New(s.presets)
	if err != nil {
		return nil, nil, err
	}
	return calc, func() {}, nil
}

// prune discards widgets idle for longer than the idle timeout.
func (s *widgetStore) prune() int {
	s.mu.Lock()
	removed := s.pruneLocked()
	count := len(s.widgets)
	s.mu.Unlock()

	s.metrics.SetActiveWidgets(count)
	return removed
}

func (s *widgetStore) pruneLocked() int {
	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, wg := range s.widgets {
		if wg.lastSeen.Before(cutoff) {
			delete(s.widgets, id)
			removed++
		}
	}
	return removed
}

func (s *widgetStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.widgets)
}

// runPruner prunes on a fixed interval until ctx is done.
func (s *widgetStore) runPruner(ctx context.Context) {
	every := s.idle / 4
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.prune(); n > 0 {
				s.logger.Debug("pruned idle widgets", zap.Int("removed", n))
			}
		}
	}
}
