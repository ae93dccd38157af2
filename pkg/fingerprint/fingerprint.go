// Package fingerprint derives content hashes of feature sets and uses them to
// short circuit repeated predictions.
package fingerprint

import (
	"strconv"
	"strings"

	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
	"github.com/mpapenbr/f1-prediction-engine/pkg/utils"
)

const (
	partSep  = "|"
	valueSep = ","
)

// Fingerprint returns the digest of the feature set content together with the
// canonical string it was computed from. The canonical string is the event
// name followed by the comma joined values of every feature in key order.
func Fingerprint(fs *model.FeatureSet) (hash, canonical string) {
	canonical = Canonical(fs)
	return utils.HashContent(canonical), canonical
}

func Canonical(fs *model.FeatureSet) string {
	parts := make([]string, 0, len(fs.Keys)+1)
	parts = append(parts, fs.EventName)
	for _, k := range fs.Keys {
		if k == model.KeyRace {
			continue
		}
		values := make([]string, len(fs.Rows))
		for i, r := range fs.Rows {
			values[i] = strconv.FormatFloat(r.Values[k], 'f', -1, 64)
		}
		parts = append(parts, strings.Join(values, valueSep))
	}
	return strings.Join(parts, partSep)
}
