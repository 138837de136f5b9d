package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForVisits(t *testing.T) {
	tests := []struct {
		visits int
		want   DifficultyTier
	}{
		{2, DifficultyShort},
		{3, DifficultyShort},
		{4, DifficultyShort},
		{5, DifficultyModerate},
		{7, DifficultyModerate},
		{8, DifficultyLong},
		{12, DifficultyLong},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForVisits(tt.visits), "visits=%d", tt.visits)
	}
}

func TestDifficultyTierValid(t *testing.T) {
	assert.True(t, DifficultyShort.Valid())
	assert.True(t, DifficultyModerate.Valid())
	assert.True(t, DifficultyLong.Valid())
	assert.False(t, DifficultyTier("").Valid())
	assert.False(t, DifficultyTier("easy").Valid())
}

func TestCandidateNames(t *testing.T) {
	seq := &CareerSequence{
		PlayerName: "Player One",
		SharedWith: []PlayerRef{
			{PlayerID: "p2", Name: "Player Two"},
			{PlayerID: "p3", Name: "Player Three"},
		},
	}
	assert.Equal(t, []string{"Player One", "Player Two", "Player Three"}, seq.CandidateNames())

	solo := &CareerSequence{PlayerName: "Player One"}
	assert.Equal(t, []string{"Player One"}, solo.CandidateNames())
}

func TestQuestionForOmitsAnswer(t *testing.T) {
	seq := &CareerSequence{
		PlayerID:   "p1",
		PlayerName: "Player One",
		Difficulty: DifficultyShort,
		SharedBy:   2,
		Visits: []ClubVisit{
			{Club: "A", Season: "2019"},
			{Club: "B", Season: "2020"},
		},
	}

	q := QuestionFor(seq)
	assert.Equal(t, "p1", q.PlayerID)
	assert.Equal(t, 2, q.NumVisits)
	assert.Equal(t, 2, q.SharedBy)
	assert.Equal(t, seq.Visits, q.Visits)
}
