package types

import (
	"sort"

	xset "github.com/xtgo/set"
)

type existentialList []Binder[ExistentialPredicate]

func (l existentialList) Len() int           { return len(l) }
func (l existentialList) Less(i, j int) bool { return StableLess(l[i].Value, l[j].Value) }
func (l existentialList) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

// SortExistentials sorts a copy of preds in StableLess order and drops duplicates
func SortExistentials(preds []Binder[ExistentialPredicate]) []Binder[ExistentialPredicate] {
	l := make(existentialList, len(preds))
	copy(l, preds)
	sort.Sort(l)
	return l[:xset.Uniq(l)]
}
