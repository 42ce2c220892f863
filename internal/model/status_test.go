package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorStatusAllows(t *testing.T) {
	assert.True(t, PriorStatusAllows("SUCCESS-HC"))
	assert.True(t, PriorStatusAllows("SUCCESS-UPDT"))

	// An already copied pair must not be copied again.
	assert.False(t, PriorStatusAllows(StatusSuccessAltDisk))
	assert.False(t, PriorStatusAllows("FAILURE-HC some check failed"))
	assert.False(t, PriorStatusAllows(StatusSkippedTimeout))
	assert.False(t, PriorStatusAllows(""))
}

func TestFailure(t *testing.T) {
	status := Failure(LabelAltDiskFailure, "wrong rootvg state on vios2")
	assert.Equal(t, "FAILURE-ALTDC wrong rootvg state on vios2", status)
	assert.True(t, IsFailure(status))
	assert.False(t, IsFailure(StatusSuccessAltDisk))
	assert.False(t, IsFailure(StatusSkippedTimeout))
}
