package services

import (
	"context"
	"testing"

	"justice_flow_go/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTransitionMetrics(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)
	wf, _ := newTestWorkflow(db)
	ctx := context.Background()
	c := fx.complaint(t, db, models.ComplaintStatusPending)

	t.Run("committed transitions are counted", func(t *testing.T) {
		received := workflowTransitions.WithLabelValues("Complaint", models.ComplaintStatusReceived)
		before := testutil.ToFloat64(received)

		_, err := wf.TransitionComplaint(ctx, ActorFromUser(fx.Police), c.ID, models.ComplaintStatusReceived, "")
		require.NoError(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(received))
	})

	t.Run("rolled back transitions are not", func(t *testing.T) {
		const marker = "never_committed"
		err := wf.transaction(ctx, func(tx *gorm.DB) error {
			if err := recordHistory(tx, ActorFromUser(fx.Admin), "Complaint", c.ID, "status", models.ComplaintStatusReceived, marker, ""); err != nil {
				return err
			}
			return Conflict("complaint changed underneath")
		})
		require.ErrorIs(t, err, ErrConflict)
		assert.Zero(t, testutil.ToFloat64(workflowTransitions.WithLabelValues("Complaint", marker)))

		var count int64
		require.NoError(t, db.Model(&models.StatusHistory{}).Where("to_value = ?", marker).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestCountFailure(t *testing.T) {
	failures := workflowFailures.WithLabelValues("metrics.test", string(KindOf(Forbidden("no"))))
	before := testutil.ToFloat64(failures)

	countFailure("metrics.test", nil)
	assert.Equal(t, before, testutil.ToFloat64(failures))

	countFailure("metrics.test", Forbidden("no"))
	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}
