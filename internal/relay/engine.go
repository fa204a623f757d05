// Package relay implements the bidirectional message relay between TalkTalk
// and Sendbird: dedup of redelivered webhooks, echo suppression, participant
// provisioning, and correlation of Sendbird conversations back to users.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"talkbridge/internal/domain"
	"talkbridge/internal/metrics"
	"talkbridge/internal/state"
)

// Engine owns all mutable relay state. The stores guard their own maps with
// short-lived locks; the per-user locks serialize whole user-to-agent relays
// for one user so echo suppression sees messages in arrival order. Network
// calls for different users run concurrently.
type Engine struct {
	consumer  domain.UserChannel
	agent     domain.AgentPlatform
	botUserID string
	timeout   time.Duration

	correlations *state.CorrelationStore
	dedup        *state.DedupFilter
	known        *state.UserCache
	provision    singleflight.Group

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex

	logger *slog.Logger
}

type Config struct {
	Consumer    domain.UserChannel
	Agent       domain.AgentPlatform
	BotUserID   string
	CallTimeout time.Duration
	DedupWindow time.Duration
	Logger      *slog.Logger
}

func NewEngine(cfg Config) *Engine {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		consumer:     cfg.Consumer,
		agent:        cfg.Agent,
		botUserID:    cfg.BotUserID,
		timeout:      cfg.CallTimeout,
		correlations: state.NewCorrelationStore(),
		dedup:        state.NewDedupFilter(cfg.DedupWindow),
		known:        state.NewUserCache(),
		userLocks:    make(map[string]*sync.Mutex),
		logger:       cfg.Logger,
	}
}

// Run keeps the dedup window swept until the context is canceled.
func (e *Engine) Run(ctx context.Context) {
	e.dedup.Run(ctx, time.Minute)
}

// RelayUserMessage forwards a TalkTalk user message to the Sendbird bot
// conversation. The fingerprint is only marked after a successful send, so the
// sender's own redelivery of a failed webhook can still succeed.
func (e *Engine) RelayUserMessage(ctx context.Context, ev domain.Event) domain.Result {
	start := time.Now()
	defer func() { metrics.RelayLatency.Observe(time.Since(start).Seconds()) }()

	log := e.logger.With("user", ev.UserID)

	unlock := e.lockUser(ev.UserID)
	defer unlock()

	fp := state.Fingerprint(ev.UserID, ev.Text)
	if e.dedup.Seen(fp) {
		log.Info("duplicate delivery skipped")
		metrics.DuplicatesTotal.Inc()
		return domain.SkippedDuplicate
	}

	if ev.Kind != domain.KindMessage || ev.Text == "" {
		log.Debug("non-message event ignored")
		return domain.Ignored
	}

	e.typing(ctx, ev.UserID, domain.TypingOn)

	if rec, ok := e.correlations.Get(ev.UserID); ok && rec.LastOutboundText == ev.Text {
		log.Info("echo of previously forwarded message suppressed")
		e.typing(ctx, ev.UserID, domain.TypingOff)
		metrics.EchoesTotal.Inc()
		return domain.SkippedEcho
	}

	if err := e.ensureParticipant(ctx, ev.UserID); err != nil {
		log.Error("participant provisioning failed", "error", err)
		e.typing(ctx, ev.UserID, domain.TypingOff)
		metrics.FailuresTotal.Inc()
		return domain.FailedParticipant
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	channelURL, err := e.agent.SendDistinctMessage(callCtx, ev.UserID, e.botUserID, ev.Text)
	cancel()
	if err != nil {
		log.Error("forward to agent failed", "error", err)
		e.typing(ctx, ev.UserID, domain.TypingOff)
		metrics.FailuresTotal.Inc()
		return domain.FailedSend
	}

	e.correlations.Upsert(ev.UserID, ev.Text, channelURL)
	e.dedup.Mark(fp)
	metrics.CorrelationRecords.Set(int64(e.correlations.Len()))
	metrics.DedupFingerprints.Set(int64(e.dedup.Len()))
	e.typing(ctx, ev.UserID, domain.TypingOff)

	log.Info("relayed to agent", "channel", channelURL)
	metrics.RelayedTotal.Inc()
	return domain.Relayed
}

// RelayBotReply forwards a Sendbird message back to the TalkTalk user whose
// conversation it belongs to. Only the configured bot identity is relayed;
// replies into conversations this process never opened are dropped.
func (e *Engine) RelayBotReply(ctx context.Context, ev domain.Event) domain.Result {
	if ev.SenderID != e.botUserID {
		e.logger.Debug("non-bot sender ignored", "sender", ev.SenderID)
		return domain.SkippedForeignSender
	}

	userID, ok := e.correlations.UserForChannel(ev.ChannelURL)
	if !ok {
		e.logger.Warn("reply for unknown conversation dropped", "channel", ev.ChannelURL)
		metrics.UnknownConvs.Inc()
		return domain.SkippedUnknownConversation
	}

	log := e.logger.With("user", userID, "channel", ev.ChannelURL)

	e.typing(ctx, userID, domain.TypingOn)
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	err := e.consumer.SendText(callCtx, userID, ev.Text)
	cancel()
	// Presence signals come in on/off pairs regardless of delivery outcome.
	e.typing(ctx, userID, domain.TypingOff)

	if err != nil {
		log.Error("reply delivery failed", "error", err)
		metrics.FailuresTotal.Inc()
		return domain.FailedSend
	}

	log.Info("bot reply relayed")
	metrics.RelayedTotal.Inc()
	return domain.Relayed
}

// ensureParticipant consults the existence cache and collapses concurrent
// provisioning calls for the same user into one Sendbird request.
func (e *Engine) ensureParticipant(ctx context.Context, userID string) error {
	if e.known.Known(userID) {
		return nil
	}
	_, err, _ := e.provision.Do(userID, func() (any, error) {
		if e.known.Known(userID) {
			return nil, nil
		}
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		if err := e.agent.EnsureUser(callCtx, userID); err != nil {
			return nil, err
		}
		e.known.Add(userID)
		return nil, nil
	})
	return err
}

// typing sends a presence signal, best effort: failures are logged, never
// propagated.
func (e *Engine) typing(ctx context.Context, userID, action string) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.consumer.SendAction(callCtx, userID, action); err != nil {
		e.logger.Warn("typing signal failed", "user", userID, "action", action, "error", err)
	}
}

// lockUser acquires the per-user relay lock, creating it on first use. Locks
// live as long as the process, like the correlation records they order.
func (e *Engine) lockUser(userID string) func() {
	e.mu.Lock()
	l, ok := e.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}
