package services

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SecurityEventMonitor tracks failed logins per account and locks it out once the
// persisted policy threshold is reached
type SecurityEventMonitor struct {
	mu           sync.Mutex
	failedLogins map[string][]time.Time // account key -> failure timestamps
	lockedUntil  map[string]time.Time
	alerts       []SecurityAlert
}

// SecurityAlert represents a triggered lockout
type SecurityAlert struct {
	Timestamp time.Time `json:"timestamp"`
	Account   string    `json:"account"`
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
}

// LockoutPolicy is the part of the system settings the monitor applies
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// Monitor is the global monitor instance
var Monitor *SecurityEventMonitor

// NewSecurityMonitor creates an empty monitor
func NewSecurityMonitor() *SecurityEventMonitor {
	return &SecurityEventMonitor{
		failedLogins: make(map[string][]time.Time),
		lockedUntil:  make(map[string]time.Time),
	}
}

// InitSecurityMonitor initializes the global monitor
func InitSecurityMonitor() *SecurityEventMonitor {
	Monitor = NewSecurityMonitor()
	return Monitor
}

// IsLocked reports whether the account is currently locked out
func (m *SecurityEventMonitor) IsLocked(account string) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.lockedUntil[account]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(m.lockedUntil, account)
		return false
	}
	return true
}

// TrackFailedLogin records a failure and returns true when it triggered a lockout
func (m *SecurityEventMonitor) TrackFailedLogin(account, ip string, policy LockoutPolicy) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-policy.Window)
	valid := m.failedLogins[account][:0]
	for _, t := range m.failedLogins[account] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	valid = append(valid, now)
	m.failedLogins[account] = valid

	if policy.MaxAttempts <= 0 || len(valid) < policy.MaxAttempts {
		return false
	}

	m.lockedUntil[account] = now.Add(policy.Window)
	delete(m.failedLogins, account)

	alert := SecurityAlert{Timestamp: now, Account: account, IP: ip, Reason: "too many failed logins"}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > 100 {
		m.alerts = m.alerts[:100]
	}
	log.Printf("[SECURITY ALERT] Account %s locked for %s after %d failed logins (last from %s)",
		account, policy.Window, len(valid), ip)
	return true
}

// Reset clears the failure history after a successful login
func (m *SecurityEventMonitor) Reset(account string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failedLogins, account)
	delete(m.lockedUntil, account)
}

// GetRecentAlerts returns a copy of recent alerts
func (m *SecurityEventMonitor) GetRecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	alertsCopy := make([]SecurityAlert, len(m.alerts))
	copy(alertsCopy, m.alerts)
	return alertsCopy
}
