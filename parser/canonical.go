package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// factTuple is the canonical identity of one produced fact, excluding the
// generated ids and snapshot id. The determinism contract is stated over
// the set of these tuples.
type factTuple struct {
	EntityKey   string
	MetricKey   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Value       float64
	Unit        string
	Dims        map[string]any
}

// canonicalHash returns the SHA-256 over the sorted serialization of the
// tuples. Identical input bytes and parser version yield the identical
// hash across runs, hosts and process restarts.
func canonicalHash(tuples []factTuple) string {
	sorted := make([]factTuple, len(tuples))
	copy(sorted, tuples)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MetricKey != sorted[j].MetricKey {
			return sorted[i].MetricKey < sorted[j].MetricKey
		}
		return sorted[i].EntityKey < sorted[j].EntityKey
	})

	var b strings.Builder
	for _, t := range sorted {
		// json.Marshal sorts map keys, making the dims serialization
		// canonical.
		dims, err := json.Marshal(t.Dims)
		if err != nil {
			dims = []byte(fmt.Sprintf("%v", t.Dims))
		}
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s\n",
			t.MetricKey,
			t.EntityKey,
			t.PeriodStart.Format("2006-01-02"),
			t.PeriodEnd.Format("2006-01-02"),
			strconv.FormatFloat(t.Value, 'g', -1, 64),
			t.Unit,
			dims)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return types.HashPrefix + hex.EncodeToString(sum[:])
}
