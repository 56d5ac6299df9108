package wire

import "strconv"

// UpgradeFunc fills in a default Record for the fields a given source
// version never wrote. One is registered per (kind, fromVersion) pair by
// the swap kind that owns the schema; wire itself knows nothing about
// any kind's field layout.
type UpgradeFunc func(rec Record) Record

// Upgrade applies every registered UpgradeFunc between the record's own
// "version" field (0 if even that key is absent, the oldest schema this
// engine ever wrote) and target, in order, then returns the merged
// record. Each step fills in defaults for keys the step's source version
// never populated without overwriting keys the record already has. rec
// itself is never mutated; Upgrade always returns a copy.
func Upgrade(rec Record, target uint32, steps map[uint32]UpgradeFunc) Record {
	from := uint32(0)
	if v, ok := rec["version"].(string); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			from = uint32(n)
		}
	}

	out := mergeDefaults(rec, Record{})
	for v := from; v < target; v++ {
		step, ok := steps[v]
		if !ok {
			continue
		}
		out = mergeDefaults(out, step(out))
	}
	out["version"] = strconv.FormatUint(uint64(target), 10)
	return out
}

// mergeDefaults returns a record containing every key of defaults not
// already present in rec, plus every key already in rec unchanged.
func mergeDefaults(rec, defaults Record) Record {
	out := make(Record, len(rec)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range rec {
		out[k] = v
	}
	return out
}
