package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairEligible(t *testing.T) {
	base := StopTripRecord{StopSequence: 1, ServiceDate: "20260315"}
	dest := StopTripRecord{StopSequence: 5, ServiceDate: "20260315"}

	assert.True(t, pairEligible(base, dest), "ordinary ordered pair on the same service date is eligible")

	t.Run("rejects out-of-order stop sequence", func(t *testing.T) {
		o := base
		d := dest
		o.StopSequence, d.StopSequence = 5, 1
		assert.False(t, pairEligible(o, d))
	})

	t.Run("rejects no-pickup origin", func(t *testing.T) {
		o := base
		o.PickupType = 1
		assert.False(t, pairEligible(o, dest))
	})

	t.Run("rejects no-dropoff destination", func(t *testing.T) {
		d := dest
		d.DropoffType = 1
		assert.False(t, pairEligible(base, d))
	})

	t.Run("rejects mismatched service dates", func(t *testing.T) {
		d := dest
		d.ServiceDate = "20260316"
		assert.False(t, pairEligible(base, d))
	})

	t.Run("rejects a cancelled leg", func(t *testing.T) {
		o := base
		o.Status = StatusCancel
		assert.False(t, pairEligible(o, dest))
	})

	t.Run("rejects a skipped destination stop", func(t *testing.T) {
		d := dest
		d.Status = StatusSkip
		assert.False(t, pairEligible(base, d))
	})
}

func TestExtendLeg_RejectsZeroPreviousArrival(t *testing.T) {
	r := &Reconciler{}
	_, ok := r.extendLeg(LegSpec{}, time.Time{}, ConnectionQuery{})
	assert.False(t, ok, "a leg with no previous arrival instant can never be extended")
}

func TestFindConnections_EmptyLegsReturnsNil(t *testing.T) {
	r := &Reconciler{}
	assert.Nil(t, r.FindConnections(ConnectionQuery{}))
}
