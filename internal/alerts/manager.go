// Package alerts implements the escalating alert manager (component E):
// rate-limited intake, per-severity escalation scheduling, and fan-out
// to every enabled notification channel.
package alerts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// escalationPollInterval mirrors the 30s cadence of the reference
// escalation worker.
const escalationPollInterval = 30 * time.Second

type alertState struct {
	alert                domain.RiskAlert
	escalationCount      int
	nextEscalation       time.Time
	acknowledgmentNeeded bool
}

type notificationJob struct {
	alert           domain.RiskAlert
	channel         domain.NotificationChannel
	escalationLevel int
	isEscalation    bool
}

// Manager is the escalating alert system. It must be constructed with
// New and stopped with Stop once Start has been called.
type Manager struct {
	mu     sync.RWMutex
	config domain.AlertConfiguration

	activeMu     sync.Mutex
	activeAlerts map[uuid.UUID]*alertState
	history      map[uuid.UUID]domain.RiskAlert

	transports map[domain.ChannelKind]domain.NotificationTransport

	rateLimiter *rateLimiter

	notifications chan notificationJob
	escalate      chan struct{}
	stop          chan struct{}
	wg            sync.WaitGroup
	started       bool

	log zerolog.Logger
}

// New constructs a Manager from config. Call Start to begin the
// background escalation and notification workers.
func New(config domain.AlertConfiguration, transports map[domain.ChannelKind]domain.NotificationTransport, log zerolog.Logger) *Manager {
	return &Manager{
		config:        config,
		activeAlerts:  make(map[uuid.UUID]*alertState),
		history:       make(map[uuid.UUID]domain.RiskAlert),
		transports:    transports,
		rateLimiter:   newRateLimiter(config.RateLimiting),
		notifications: make(chan notificationJob, 256),
		escalate:      make(chan struct{}, 1),
		stop:          make(chan struct{}),
		log:           log.With().Str("component", "alerts").Logger(),
	}
}

// Start launches the notification and escalation worker goroutines.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(2)
	go m.notificationWorker()
	go m.escalationWorker()
}

// Stop signals both background workers to exit and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()
}

// SendAlert is the entry point the liquidation monitor calls for every
// alert it raises. It is rate-limited: a rejected alert is dropped
// silently, matching the reference implementation.
func (m *Manager) SendAlert(ctx context.Context, alert domain.RiskAlert) error {
	if !m.rateLimiter.allow() {
		m.log.Warn().Str("alert_id", alert.ID.String()).Msg("alert rate limited")
		return nil
	}

	config := m.configSnapshot()

	m.activeMu.Lock()
	m.history[alert.ID] = alert
	if rule, ok := config.EscalationRules[alert.Level]; ok {
		m.activeAlerts[alert.ID] = &alertState{
			alert:                alert,
			escalationCount:      0,
			nextEscalation:       time.Now().Add(rule.InitialDelay),
			acknowledgmentNeeded: rule.RequiredAcknowledgment,
		}
	}
	m.activeMu.Unlock()

	for _, channel := range config.NotificationChannels {
		if !channel.EnabledFor(alert.Level) {
			continue
		}
		m.enqueueNotification(notificationJob{alert: alert, channel: channel, escalationLevel: 0, isEscalation: false})
	}

	if alert.Level == domain.RiskLevelEmergency {
		select {
		case m.escalate <- struct{}{}:
		default:
		}
	}

	m.log.Info().Str("alert_id", alert.ID.String()).Str("position_id", alert.PositionID.String()).Msg("alert sent")
	return nil
}

// GetAlerts returns every alert in history, optionally filtered by
// position.
func (m *Manager) GetAlerts(positionID *uuid.UUID) []domain.RiskAlert {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	out := make([]domain.RiskAlert, 0, len(m.history))
	for _, alert := range m.history {
		if positionID != nil && alert.PositionID != *positionID {
			continue
		}
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ActiveAlertCount returns the number of alerts currently tracked for
// escalation: every sent alert whose level has an escalation rule, until
// it is acknowledged. An alert whose escalations are exhausted stays
// counted until then.
func (m *Manager) ActiveAlertCount() int {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	return len(m.activeAlerts)
}

// AcknowledgeAlert marks an alert acknowledged in history and removes it
// from active escalation, matching the reference semantics: history
// keeps the record, only future escalation stops.
func (m *Manager) AcknowledgeAlert(alertID uuid.UUID) error {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	if _, ok := m.activeAlerts[alertID]; !ok {
		return &domain.AlertNotFoundError{ID: alertID}
	}

	if alert, ok := m.history[alertID]; ok {
		alert.Acknowledged = true
		m.history[alertID] = alert
	}
	delete(m.activeAlerts, alertID)

	m.log.Info().Str("alert_id", alertID.String()).Msg("alert acknowledged")
	return nil
}

// configSnapshot returns the current configuration with its notification
// channels ordered by descending priority, so every fan-out enqueues (and
// the single notification worker delivers) higher-priority channels first.
func (m *Manager) configSnapshot() domain.AlertConfiguration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	config := m.config
	channels := make([]domain.NotificationChannel, len(config.NotificationChannels))
	copy(channels, config.NotificationChannels)
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Priority > channels[j].Priority })
	config.NotificationChannels = channels
	return config
}

// UpdateConfiguration replaces the escalation and channel configuration.
func (m *Manager) UpdateConfiguration(config domain.AlertConfiguration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

func (m *Manager) enqueueNotification(job notificationJob) {
	select {
	case m.notifications <- job:
	default:
		m.log.Error().Str("alert_id", job.alert.ID.String()).Msg("notification queue full, dropping notification")
	}
}

func (m *Manager) notificationWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case job := <-m.notifications:
			transport, ok := m.transports[job.channel.Kind]
			if !ok {
				continue
			}
			if err := transport.Send(context.Background(), job.channel, job.alert, job.isEscalation, job.escalationLevel); err != nil {
				m.log.Error().Err(err).Str("alert_id", job.alert.ID.String()).Msg("failed to send notification")
			}
		}
	}
}

func (m *Manager) escalationWorker() {
	defer m.wg.Done()
	ticker := time.NewTicker(escalationPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.processEscalations()
		case <-m.escalate:
			m.processEscalations()
		}
	}
}

func (m *Manager) processEscalations() {
	config := m.configSnapshot()
	now := time.Now()

	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	for _, state := range m.activeAlerts {
		if now.Before(state.nextEscalation) {
			continue
		}

		rule, ok := config.EscalationRules[state.alert.Level]
		if !ok || state.escalationCount >= rule.MaxEscalations {
			continue
		}

		for _, channel := range config.NotificationChannels {
			if !channel.EnabledFor(state.alert.Level) {
				continue
			}
			m.enqueueNotification(notificationJob{
				alert:           state.alert,
				channel:         channel,
				escalationLevel: state.escalationCount + 1,
				isEscalation:    true,
			})
		}

		state.escalationCount++
		nextInterval := time.Duration(float64(rule.RepeatInterval) * pow(rule.EscalationMultiplier, state.escalationCount))
		state.nextEscalation = now.Add(nextInterval)

		m.log.Info().Str("alert_id", state.alert.ID.String()).Int("escalation_count", state.escalationCount).Msg("escalated alert")
	}
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
