// Package substitution maps drivers absent from a reference event to a team
// mate who took part in it.
package substitution

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/mpapenbr/f1-prediction-engine/log"
)

// Lookup finds candidates for the missing drivers. A candidate shares the
// constructor of the missing driver at neededEventID and took part in
// referenceEventID. The first candidate of each list is used.
type Lookup interface {
	SubstituteCandidates(
		ctx context.Context,
		missing []int,
		referenceEventID, neededEventID int,
	) (map[int][]int, error)
}

// Substitutions is the outcome of a resolution.
type Substitutions struct {
	present  map[int]struct{}
	standIns map[int]int
}

// StandIn returns the driver whose reference data represents id.
// ok is false if the driver is neither present nor substituted.
func (s *Substitutions) StandIn(id int) (standIn int, ok bool) {
	if _, found := s.present[id]; found {
		return id, true
	}
	standIn, ok = s.standIns[id]
	return standIn, ok
}

// Replaced returns the missing drivers which got a stand in.
func (s *Substitutions) Replaced() map[int]int {
	return s.standIns
}

// Missing returns the needed drivers which are not present, in order of needed.
func Missing(needed, present []int) []int {
	return lo.Without(needed, present...)
}

type Resolver struct {
	lookup Lookup
	l      *log.Logger
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, l: log.Default().Named("substitution")}
}

// Resolve computes stand ins for the drivers of needed which are not part of
// present. The lookup is only called if there are missing drivers.
//
//nolint:whitespace // can't make both editor and linter happy
func (r *Resolver) Resolve(
	ctx context.Context,
	needed, present []int,
	referenceEventID, neededEventID int,
) (*Substitutions, error) {
	ret := &Substitutions{
		present:  make(map[int]struct{}, len(present)),
		standIns: map[int]int{},
	}
	for _, id := range present {
		ret.present[id] = struct{}{}
	}
	missing := Missing(needed, present)
	if len(missing) == 0 {
		return ret, nil
	}
	candidates, err := r.lookup.SubstituteCandidates(ctx, missing, referenceEventID,
		neededEventID)
	if err != nil {
		return nil, fmt.Errorf("substitute candidates: %w", err)
	}
	for _, id := range missing {
		if c, ok := candidates[id]; ok && len(c) > 0 {
			ret.standIns[id] = c[0]
			if len(c) > 1 {
				r.l.Debug("multiple candidates, using first",
					log.Int("driver", id), log.Ints("candidates", c))
			}
		} else {
			r.l.Debug("no stand in found", log.Int("driver", id),
				log.Int("reference", referenceEventID))
		}
	}
	return ret, nil
}
