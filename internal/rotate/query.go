package rotate

import "maps"

// Recognized query options.
const (
	KeyHasDate          = "has_date"
	KeyBefore           = "before"
	KeyAfter            = "after"
	KeyHour             = "hour"
	KeyExceptHour       = "except_hour"
	KeyDay              = "day"
	KeyExceptDay        = "except_day"
	KeyYear             = "year"
	KeyExceptYear       = "except_year"
	KeyPattern          = "pattern"
	KeyStartsWith       = "startswith"
	KeyExceptStartsWith = "except_startswith"
	KeyEndsWith         = "endswith"
	KeyExceptEndsWith   = "except_endswith"

	KeyExceptFirst = "except_first"
	KeyExceptLast  = "except_last"

	KeyDebug                = "debug"
	KeySnapshotUseStartTime = "snapshot_use_start_time"
)

// Query is a retention query: option name to argument. Arguments may be
// dates, durations, ints, strings, booleans or lists of those. Keys that name
// no registered criterion or filter are ignored.
type Query map[string]any

// With returns a copy of q with key set to value.
func (q Query) With(key string, value any) Query {
	out := make(Query, len(q)+1)
	maps.Copy(out, q)
	out[key] = value
	return out
}

func (q Query) flag(key string) (bool, error) {
	v, ok := q[key]
	if !ok || v == nil {
		return false, nil
	}
	return toBool(key, v)
}
