package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecurityMonitor(t *testing.T) {
	policy := LockoutPolicy{MaxAttempts: 3, Window: time.Minute}

	t.Run("Locks after the threshold", func(t *testing.T) {
		m := NewSecurityMonitor()
		account := "judge@justice.test"

		assert.False(t, m.TrackFailedLogin(account, "10.0.0.1", policy))
		assert.False(t, m.TrackFailedLogin(account, "10.0.0.1", policy))
		assert.False(t, m.IsLocked(account))

		assert.True(t, m.TrackFailedLogin(account, "10.0.0.2", policy))
		assert.True(t, m.IsLocked(account))

		alerts := m.GetRecentAlerts()
		assert.Len(t, alerts, 1)
		assert.Equal(t, account, alerts[0].Account)
		assert.Equal(t, "10.0.0.2", alerts[0].IP)
	})

	t.Run("Accounts are tracked separately", func(t *testing.T) {
		m := NewSecurityMonitor()
		m.TrackFailedLogin("a@justice.test", "ip", policy)
		m.TrackFailedLogin("a@justice.test", "ip", policy)
		m.TrackFailedLogin("b@justice.test", "ip", policy)

		assert.False(t, m.IsLocked("a@justice.test"))
		assert.False(t, m.IsLocked("b@justice.test"))
	})

	t.Run("Reset clears failures and lock", func(t *testing.T) {
		m := NewSecurityMonitor()
		for i := 0; i < 3; i++ {
			m.TrackFailedLogin("c@justice.test", "ip", policy)
		}
		assert.True(t, m.IsLocked("c@justice.test"))

		m.Reset("c@justice.test")
		assert.False(t, m.IsLocked("c@justice.test"))
	})

	t.Run("Lock expires with the window", func(t *testing.T) {
		m := NewSecurityMonitor()
		short := LockoutPolicy{MaxAttempts: 1, Window: 10 * time.Millisecond}
		assert.True(t, m.TrackFailedLogin("d@justice.test", "ip", short))
		assert.True(t, m.IsLocked("d@justice.test"))

		time.Sleep(20 * time.Millisecond)
		assert.False(t, m.IsLocked("d@justice.test"))
	})

	t.Run("Nil monitor is inert", func(t *testing.T) {
		var m *SecurityEventMonitor
		assert.False(t, m.IsLocked("x"))
		assert.False(t, m.TrackFailedLogin("x", "ip", policy))
		m.Reset("x")
	})
}
