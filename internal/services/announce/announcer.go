package announce

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/metrics"
	"cafe-pos/internal/models"
)

// Synthesizer turns announcement text into an audio URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Result says what Handle did with a payload.
type Result string

const (
	ResultAccepted  Result = "accepted"
	ResultDuplicate Result = "duplicate"
	ResultBusy      Result = "busy"
	ResultInvalid   Result = "invalid"
)

// Announcer speaks ready events. At most one synthesis and playback runs at a
// time; events that arrive meanwhile are dropped without being remembered so
// a redelivery is announced later.
type Announcer struct {
	template string
	store    Store
	tts      Synthesizer
	player   Player
	logger   *logger.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	lastSeen string
	busy     atomic.Bool
	wg       sync.WaitGroup
}

// New builds an announcer. template must contain "{order_id}". m may be nil.
func New(template string, store Store, tts Synthesizer, player Player, log *logger.Logger, m *metrics.Metrics) *Announcer {
	return &Announcer{
		template: template,
		store:    store,
		tts:      tts,
		player:   player,
		logger:   log,
		metrics:  m,
	}
}

// Render fills the template with the order id.
func (a *Announcer) Render(orderID int64) string {
	return strings.ReplaceAll(a.template, "{order_id}", strconv.FormatInt(orderID, 10))
}

// Handle evaluates one raw push payload and starts the announcement in the
// background when it is new.
func (a *Announcer) Handle(ctx context.Context, payload []byte) Result {
	msg := strings.TrimSpace(string(payload))
	requestID := logger.RequestIDFromContext(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if msg == a.lastSeen {
		return a.record(ResultDuplicate)
	}

	spoken, err := a.store.LastSpoken(ctx)
	if err != nil {
		a.logger.Warn("last_spoken_unavailable", "Could not read last spoken announcement", requestID, map[string]interface{}{
			"error": err.Error(),
		})
	}
	if msg == spoken {
		a.lastSeen = msg
		return a.record(ResultDuplicate)
	}

	var ev models.ReadyEvent
	if err := json.Unmarshal([]byte(msg), &ev); err != nil || ev.OrderID <= 0 {
		a.logger.Warn("invalid_ready_event", "Ignoring push message that is not a ready event", requestID, map[string]interface{}{
			"payload": msg,
		})
		return a.record(ResultInvalid)
	}

	if !a.busy.CompareAndSwap(false, true) {
		a.logger.Debug("announcement_skipped", "Announcement already playing", requestID, map[string]interface{}{
			"order_id": ev.OrderID,
		})
		return a.record(ResultBusy)
	}

	a.lastSeen = msg
	a.wg.Add(1)
	go a.speak(ctx, msg, ev.OrderID)
	return a.record(ResultAccepted)
}

func (a *Announcer) speak(ctx context.Context, msg string, orderID int64) {
	defer a.wg.Done()
	defer a.busy.Store(false)

	requestID := logger.RequestIDFromContext(ctx)
	fields := map[string]interface{}{"order_id": orderID}

	url, err := a.tts.Synthesize(ctx, a.Render(orderID))
	if err != nil {
		a.fail(msg, requestID, models.NewChannelError("tts", err), fields)
		return
	}
	if err := a.player.Play(ctx, url); err != nil {
		a.fail(msg, requestID, models.NewChannelError("play", err), fields)
		return
	}

	if err := a.store.SetLastSpoken(context.WithoutCancel(ctx), msg); err != nil {
		a.logger.Warn("last_spoken_not_saved", "Could not persist last spoken announcement", requestID, map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}
	a.logger.Info("order_announced", "Ready announcement played", requestID, fields)
	a.count("spoken")
}

// fail forgets msg so a redelivered event is tried again.
func (a *Announcer) fail(msg, requestID string, err error, fields map[string]interface{}) {
	a.mu.Lock()
	if a.lastSeen == msg {
		a.lastSeen = ""
	}
	a.mu.Unlock()

	a.logger.Error("announcement_failed", "Ready announcement failed", requestID, err, fields)
	a.count("failed")
}

// Busy reports whether an announcement is playing.
func (a *Announcer) Busy() bool {
	return a.busy.Load()
}

// Wait blocks until the running announcement, if any, has finished.
func (a *Announcer) Wait() {
	a.wg.Wait()
}

func (a *Announcer) record(r Result) Result {
	a.count(string(r))
	return r
}

func (a *Announcer) count(outcome string) {
	if a.metrics != nil {
		a.metrics.Announcements.WithLabelValues(outcome).Inc()
	}
}
