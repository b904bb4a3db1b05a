package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"catalogdns/internal/catalog"
)

// AlertLevel is the severity of a raised Alert.
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// Alert is one raised condition. CheckRules gives each trigger its own ID
// (the rule ID plus the Unix second), so a recurring condition records a
// new alert each time its cooldown has passed.
type Alert struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Level      AlertLevel `json:"level"`
	Component  string     `json:"component"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// AlertRule is a named condition polled on a cooldown.
type AlertRule struct {
	ID            string
	Name          string
	Condition     func() bool
	Level         AlertLevel
	Component     string
	Message       string
	Cooldown      time.Duration
	LastTriggered time.Time
}

// AlertManager polls a set of rules and fans triggered alerts out to receivers.
type AlertManager struct {
	alerts    map[string]*Alert
	rules     []AlertRule
	receivers []AlertReceiver
	logger    *zap.Logger
	mu        sync.RWMutex
}

// AlertReceiver delivers a triggered alert somewhere outside the process.
type AlertReceiver interface {
	SendAlert(alert *Alert) error
}

// NewAlertManager returns an AlertManager with no rules or receivers.
func NewAlertManager(logger *zap.Logger) *AlertManager {
	return &AlertManager{
		alerts: make(map[string]*Alert),
		logger: logger,
	}
}

// AddReceiver registers a destination for future triggered alerts.
func (am *AlertManager) AddReceiver(receiver AlertReceiver) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.receivers = append(am.receivers, receiver)
}

// AddRule registers a condition to poll on every CheckRules call.
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

// TriggerAlert records alert and fans it out to every receiver, unless an
// unresolved alert with the same ID already exists.
func (am *AlertManager) TriggerAlert(alert *Alert) {
	am.mu.Lock()
	defer am.mu.Unlock()

	if existing, exists := am.alerts[alert.ID]; exists && !existing.Resolved {
		am.logger.Debug("alert already active", zap.String("alert_id", alert.ID))
		return
	}
	am.alerts[alert.ID] = alert

	for _, receiver := range am.receivers {
		if err := receiver.SendAlert(alert); err != nil {
			am.logger.Error("failed to deliver alert", zap.String("alert_id", alert.ID), zap.Error(err))
		}
	}

	am.logger.Info("alert triggered",
		zap.String("alert_id", alert.ID),
		zap.String("level", string(alert.Level)),
		zap.String("component", alert.Component),
	)
}

// ResolveAlert marks an active alert resolved, if one exists.
func (am *AlertManager) ResolveAlert(alertID string) {
	am.mu.Lock()
	defer am.mu.Unlock()

	if alert, exists := am.alerts[alertID]; exists && !alert.Resolved {
		now := time.Now()
		alert.Resolved = true
		alert.ResolvedAt = &now
		am.logger.Info("alert resolved", zap.String("alert_id", alertID))
	}
}

// GetAlerts returns every alert ever triggered, resolved or not.
func (am *AlertManager) GetAlerts() []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	out := make([]Alert, 0, len(am.alerts))
	for _, alert := range am.alerts {
		out = append(out, *alert)
	}
	return out
}

// GetActiveAlerts returns every unresolved alert.
func (am *AlertManager) GetActiveAlerts() []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	out := make([]Alert, 0)
	for _, alert := range am.alerts {
		if !alert.Resolved {
			out = append(out, *alert)
		}
	}
	return out
}

// CheckRules polls every registered rule once, respecting each rule's cooldown.
func (am *AlertManager) CheckRules() {
	am.mu.RLock()
	rules := make([]AlertRule, len(am.rules))
	copy(rules, am.rules)
	am.mu.RUnlock()

	for _, rule := range rules {
		if time.Since(rule.LastTriggered) < rule.Cooldown {
			continue
		}
		if !rule.Condition() {
			continue
		}

		am.TriggerAlert(&Alert{
			ID:        fmt.Sprintf("%s_%d", rule.ID, time.Now().Unix()),
			Title:     rule.Name,
			Message:   rule.Message,
			Level:     rule.Level,
			Component: rule.Component,
			Timestamp: time.Now(),
		})

		am.mu.Lock()
		for i, r := range am.rules {
			if r.ID == rule.ID {
				am.rules[i].LastTriggered = time.Now()
				break
			}
		}
		am.mu.Unlock()
	}
}

// StartMonitoring polls CheckRules on interval until ctx is cancelled.
func (am *AlertManager) StartMonitoring(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			am.CheckRules()
		}
	}
}

// HighMemoryUsageRule fires when resident heap memory exceeds thresholdMB.
func HighMemoryUsageRule(thresholdMB float64) AlertRule {
	return AlertRule{
		ID:   "high_memory_usage",
		Name: "High Memory Usage",
		Condition: func() bool {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return float64(m.Alloc)/1024/1024 > thresholdMB
		},
		Level:     AlertLevelWarning,
		Component: "memory",
		Message:   fmt.Sprintf("memory usage exceeds %.0f MB", thresholdMB),
		Cooldown:  5 * time.Minute,
	}
}

// CatalogueUnreachableRule fires when the Catalogue Store fails to answer
// a bounded list query — the same transient-external failure mode the
// verifier and synchroniser already tolerate, surfaced as an alert
// rather than retried silently.
func CatalogueUnreachableRule(store catalog.Store) AlertRule {
	return AlertRule{
		ID:   "catalogue_unreachable",
		Name: "Catalogue Store Unreachable",
		Condition: func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := store.ListActive(ctx)
			return err != nil
		},
		Level:     AlertLevelCritical,
		Component: "catalogue",
		Message:   "catalogue store did not answer ListActive within 5s",
		Cooldown:  1 * time.Minute,
	}
}

// LogAlertReceiver writes every alert to the process log.
type LogAlertReceiver struct {
	logger *zap.Logger
}

// NewLogAlertReceiver returns a receiver that logs at a level matching the alert's severity.
func NewLogAlertReceiver(logger *zap.Logger) *LogAlertReceiver {
	return &LogAlertReceiver{logger: logger}
}

func (lar *LogAlertReceiver) SendAlert(alert *Alert) error {
	fields := []zap.Field{
		zap.String("alert_id", alert.ID),
		zap.String("title", alert.Title),
		zap.String("message", alert.Message),
		zap.String("component", alert.Component),
		zap.Time("timestamp", alert.Timestamp),
	}
	switch alert.Level {
	case AlertLevelCritical:
		lar.logger.Error("critical alert", fields...)
	case AlertLevelWarning:
		lar.logger.Warn("warning alert", fields...)
	default:
		lar.logger.Info("info alert", fields...)
	}
	return nil
}

// WebhookAlertReceiver POSTs the alert as JSON to a configured URL.
type WebhookAlertReceiver struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookAlertReceiver returns a receiver that POSTs to url, bounded by a 10s timeout.
func NewWebhookAlertReceiver(url string, logger *zap.Logger) *WebhookAlertReceiver {
	return &WebhookAlertReceiver{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (war *WebhookAlertReceiver) SendAlert(alert *Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("webhook alert: encode: %w", err)
	}

	resp, err := war.client.Post(war.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook alert: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook alert: unexpected status %d", resp.StatusCode)
	}
	return nil
}
