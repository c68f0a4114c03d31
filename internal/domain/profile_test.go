package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRating(t *testing.T) {
	tests := []struct {
		name      string
		reviews   []Review
		wantAvg   float64
		wantCount int
	}{
		{"no reviews", nil, 0, 0},
		{"only pending", []Review{{Status: ReviewPending, OverallRating: 5}}, 0, 0},
		{
			"approved only counted",
			[]Review{
				{Status: ReviewApproved, OverallRating: 5},
				{Status: ReviewApproved, OverallRating: 4},
				{Status: ReviewRejected, OverallRating: 1},
				{Status: ReviewFlagged, OverallRating: 1},
			},
			4.5, 2,
		},
		{
			"rounds to two decimals",
			[]Review{
				{Status: ReviewApproved, OverallRating: 5},
				{Status: ReviewApproved, OverallRating: 4},
				{Status: ReviewApproved, OverallRating: 4},
			},
			4.33, 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, count := ComputeRating(tt.reviews)
			assert.Equal(t, tt.wantAvg, avg)
			assert.Equal(t, tt.wantCount, count)

			again, againCount := ComputeRating(tt.reviews)
			assert.Equal(t, avg, again, "idempotent")
			assert.Equal(t, count, againCount)
		})
	}
}

func TestContentAction_AppliesTo(t *testing.T) {
	assert.True(t, ContentActionReject.AppliesTo(TargetReview))
	assert.True(t, ContentActionNone.AppliesTo(TargetMessage))
	assert.True(t, ContentActionDeactivate.AppliesTo(TargetProfile))
	assert.False(t, ContentActionDelete.AppliesTo(TargetReview))
	assert.False(t, ContentActionReject.AppliesTo(TargetProfile))
}
