package sequence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/career-sequence-game/internal/domain"
)

// KeySeparator joins club names into a sequence key. The key is only ever
// compared for equality, never shown to users.
const KeySeparator = " → "

// MinVisits is the smallest career path that makes a playable puzzle.
const MinVisits = 2

// Build turns one player's time-ordered transfer history into a canonical
// career sequence. It returns nil when the player yields no playable puzzle:
// an entirely youth/reserve history, or fewer than two surviving visits.
//
// The normalization rules are applied in a fixed order:
//  1. drop records whose destination is a youth/reserve squad
//  2. collapse consecutive records to the same destination, loan or not
//  3. collapse adjacent visits that still name the same club
//
// The result is deterministic: identical input yields identical output.
func Build(player domain.PlayerRecord, records []domain.TransferRecord) *domain.CareerSequence {
	visits := collapseAdjacent(mergeRuns(excludeYouth(records)))
	if len(visits) < MinVisits {
		return nil
	}

	names := make([]string, len(visits))
	for i, v := range visits {
		names[i] = v.Club
	}

	return &domain.CareerSequence{
		PlayerID:    player.PlayerID,
		PlayerName:  player.Name,
		PlayerImage: player.ImageURL,
		MarketValue: player.MarketValue,
		Visits:      visits,
		Difficulty:  domain.TierForVisits(len(visits)),
		SequenceKey: strings.Join(names, KeySeparator),
		SharedBy:    1,
	}
}

// excludeYouth removes records landing at a non-first-team squad entirely.
// Only the destination is checked: a promotion out of a youth squad is the
// arrival at the first team and must survive.
func excludeYouth(records []domain.TransferRecord) []domain.TransferRecord {
	kept := make([]domain.TransferRecord, 0, len(records))
	for _, r := range records {
		if IsYouthOrReserve(r.ToClub) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// mergeRuns collapses every run of consecutive records with the same
// destination club into a single visit, regardless of loan status. The
// merged visit's season label spans the run's first and last seasons.
func mergeRuns(records []domain.TransferRecord) []domain.ClubVisit {
	var visits []domain.ClubVisit
	for i := 0; i < len(records); {
		j := i
		for j+1 < len(records) && records[j+1].ToClub == records[i].ToClub {
			j++
		}
		visits = append(visits, domain.ClubVisit{
			Club:   records[i].ToClub,
			Logo:   records[i].ToClubLogo,
			Season: spanSeasons(records[i].Season, records[j].Season),
		})
		i = j + 1
	}
	return visits
}

// collapseAdjacent folds visits that still name the same club after merging,
// keeping the earlier start and the later end. Non-adjacent repeats of a club
// (A → B → A) are preserved.
func collapseAdjacent(visits []domain.ClubVisit) []domain.ClubVisit {
	if len(visits) == 0 {
		return visits
	}
	out := visits[:1]
	for _, v := range visits[1:] {
		last := &out[len(out)-1]
		if v.Club == last.Club {
			last.Season = spanSeasons(last.Season, v.Season)
			continue
		}
		out = append(out, v)
	}
	return out
}

// spanSeasons builds a label covering first through last season
func spanSeasons(first, last string) string {
	first = seasonStart(first)
	last = seasonEnd(last)
	if first == last || last == "" {
		return first
	}
	if first == "" {
		return last
	}
	return fmt.Sprintf("%s–%s", first, last)
}

// seasonStart returns the start of a possibly already-spanned label
func seasonStart(label string) string {
	if s, _, ok := strings.Cut(label, "–"); ok {
		return s
	}
	return label
}

// seasonEnd returns the end of a possibly already-spanned label
func seasonEnd(label string) string {
	if _, e, ok := strings.Cut(label, "–"); ok {
		return e
	}
	return label
}

// GroupSharedPaths fills SharedBy and SharedWith across the full population.
// Every member of a group of size k records shared_by = k and back-references
// to every other member. Back-references are ordered by player ID so repeated
// runs produce byte-identical output.
func GroupSharedPaths(seqs []*domain.CareerSequence) {
	byKey := make(map[string][]*domain.CareerSequence)
	for _, s := range seqs {
		byKey[s.SequenceKey] = append(byKey[s.SequenceKey], s)
	}

	for _, group := range byKey {
		sort.Slice(group, func(i, j int) bool { return group[i].PlayerID < group[j].PlayerID })
		for _, s := range group {
			s.SharedBy = len(group)
			s.SharedWith = nil
			for _, other := range group {
				if other.PlayerID == s.PlayerID {
					continue
				}
				s.SharedWith = append(s.SharedWith, domain.PlayerRef{
					PlayerID: other.PlayerID,
					Name:     other.PlayerName,
					ImageURL: other.PlayerImage,
				})
			}
		}
	}
}

// RankByMarketValue assigns 1-based ranks by descending market value.
// Ties break by player ID to keep the ordering stable between runs.
func RankByMarketValue(seqs []*domain.CareerSequence) {
	ranked := make([]*domain.CareerSequence, len(seqs))
	copy(ranked, seqs)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MarketValue != ranked[j].MarketValue {
			return ranked[i].MarketValue > ranked[j].MarketValue
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})
	for i, s := range ranked {
		s.MarketValueRank = i + 1
	}
}
