package participant

import (
	"sort"

	"github.com/google/uuid"
)

// Member is one call participant.
type Member struct {
	UserID           uuid.UUID `json:"user_id"`
	AudioEstablished bool      `json:"audio_established"`
}

// MovedIndex is a member whose position relative to the others changed.
// From indexes the old list, To the new one.
type MovedIndex struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ChangeSet describes how an ordered member list changed.
// Deleted indexes the old list; Inserted and Updated index the new list.
type ChangeSet struct {
	Inserted []int        `json:"inserted"`
	Deleted  []int        `json:"deleted"`
	Updated  []int        `json:"updated"`
	Moved    []MovedIndex `json:"moved"`
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Deleted) == 0 && len(c.Updated) == 0 && len(c.Moved) == 0
}

// Reconcile diffs two ordered member lists. Membership is by UserID; a kept
// member is updated when its AudioEstablished flag differs. Moves are the
// fewest kept members that must change place for the kept members to reach
// their new relative order, so a list that only gained or lost members
// reports no moves. Duplicate user ids keep their first occurrence.
func Reconcile(before, after []Member) ChangeSet {
	oldIndex := indexByID(before)
	newIndex := indexByID(after)

	var cs ChangeSet
	for i, m := range before {
		_, kept := newIndex[m.UserID]
		if !kept || oldIndex[m.UserID] != i {
			cs.Deleted = append(cs.Deleted, i)
		}
	}

	// Old positions of kept members, in new-list order.
	var keptOld, keptNew []int
	for j, m := range after {
		i, ok := oldIndex[m.UserID]
		if !ok || newIndex[m.UserID] != j {
			cs.Inserted = append(cs.Inserted, j)
			continue
		}
		if before[i].AudioEstablished != m.AudioEstablished {
			cs.Updated = append(cs.Updated, j)
		}
		keptOld = append(keptOld, i)
		keptNew = append(keptNew, j)
	}

	stay := longestIncreasing(keptOld)
	for k := range keptOld {
		if !stay[k] {
			cs.Moved = append(cs.Moved, MovedIndex{From: keptOld[k], To: keptNew[k]})
		}
	}
	sort.Slice(cs.Moved, func(a, b int) bool { return cs.Moved[a].To < cs.Moved[b].To })

	return cs
}

func indexByID(members []Member) map[uuid.UUID]int {
	idx := make(map[uuid.UUID]int, len(members))
	for i, m := range members {
		if _, ok := idx[m.UserID]; !ok {
			idx[m.UserID] = i
		}
	}
	return idx
}

// longestIncreasing marks the elements of one longest strictly increasing
// subsequence of seq (patience sorting, O(n log n)).
func longestIncreasing(seq []int) []bool {
	n := len(seq)
	keep := make([]bool, n)
	if n == 0 {
		return keep
	}

	tails := make([]int, 0, n) // indexes into seq
	prev := make([]int, n)
	for i, v := range seq {
		pos := sort.Search(len(tails), func(k int) bool { return seq[tails[k]] >= v })
		if pos > 0 {
			prev[i] = tails[pos-1]
		} else {
			prev[i] = -1
		}
		if pos == len(tails) {
			tails = append(tails, i)
		} else {
			tails[pos] = i
		}
	}

	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}
