package domain

import (
	"time"
)

// DifficultyTier classifies a career sequence by the number of club visits
type DifficultyTier string

const (
	DifficultyShort    DifficultyTier = "short"
	DifficultyModerate DifficultyTier = "moderate"
	DifficultyLong     DifficultyTier = "long"
)

// Valid reports whether the tier is one of the known values
func (d DifficultyTier) Valid() bool {
	switch d {
	case DifficultyShort, DifficultyModerate, DifficultyLong:
		return true
	}
	return false
}

// TierForVisits maps a visit count to its difficulty tier.
// Counts below 2 never reach classification; such players are excluded
// by the sequence builder.
func TierForVisits(n int) DifficultyTier {
	switch {
	case n <= 4:
		return DifficultyShort
	case n <= 7:
		return DifficultyModerate
	default:
		return DifficultyLong
	}
}

// TransferRecord represents one raw move between clubs, as scraped
type TransferRecord struct {
	PlayerID     string    `json:"player_id"`
	Season       string    `json:"season"`
	FromClub     string    `json:"from_club"`
	ToClub       string    `json:"to_club"`
	ToClubLogo   string    `json:"to_club_logo,omitempty"`
	TransferDate time.Time `json:"transfer_date"`
	Loan         bool      `json:"loan"`
}

// ClubVisit represents one stay at a club after normalization
type ClubVisit struct {
	Club   string `json:"club"`
	Logo   string `json:"logo,omitempty"`
	Season string `json:"season"`
}

// PlayerRef is a back-reference to a player sharing a career sequence
type PlayerRef struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// PlayerRecord is a scraped player row used as sequence-builder input
type PlayerRecord struct {
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	MarketValue float64 `json:"market_value"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// CareerSequence is a player's finished, game-ready career path.
// Built once per sequence-builder run and immutable afterwards.
type CareerSequence struct {
	PlayerID        string         `json:"player_id"`
	PlayerName      string         `json:"player_name"`
	PlayerImage     string         `json:"player_image,omitempty"`
	MarketValue     float64        `json:"market_value"`
	MarketValueRank int            `json:"market_value_rank"`
	Visits          []ClubVisit    `json:"visits"`
	Difficulty      DifficultyTier `json:"difficulty"`
	SequenceKey     string         `json:"sequence_key"`
	SharedBy        int            `json:"shared_by"`
	SharedWith      []PlayerRef    `json:"shared_with,omitempty"`
}

// CandidateNames returns every acceptable answer for this sequence:
// the player's own name plus every player sharing the same path.
func (s *CareerSequence) CandidateNames() []string {
	names := make([]string, 0, len(s.SharedWith)+1)
	names = append(names, s.PlayerName)
	for _, ref := range s.SharedWith {
		names = append(names, ref.Name)
	}
	return names
}

// Question is a career sequence exposed to a session, without the answer
type Question struct {
	PlayerID   string         `json:"player_id"`
	Difficulty DifficultyTier `json:"difficulty"`
	NumVisits  int            `json:"num_visits"`
	SharedBy   int            `json:"shared_by"`
	Visits     []ClubVisit    `json:"visits"`
}

// QuestionFor builds the session-facing view of a sequence
func QuestionFor(seq *CareerSequence) Question {
	return Question{
		PlayerID:   seq.PlayerID,
		Difficulty: seq.Difficulty,
		NumVisits:  len(seq.Visits),
		SharedBy:   seq.SharedBy,
		Visits:     seq.Visits,
	}
}

// DifficultyStats summarizes the catalog for one difficulty tier
type DifficultyStats struct {
	Difficulty DifficultyTier `json:"difficulty"`
	Count      int            `json:"count"`
	AvgVisits  float64        `json:"avg_visits"`
	MinVisits  int            `json:"min_visits"`
	MaxVisits  int            `json:"max_visits"`
}

// GameStats summarizes the whole question catalog
type GameStats struct {
	TotalQuestions int               `json:"total_questions"`
	ByDifficulty   []DifficultyStats `json:"by_difficulty"`
}
