package pagination

// Catalog windows are offset-based: the picker only mounts the rows that are
// visible, so queries always carry an offset plus a bounded limit.

const (
	// DefaultLimit is the standard window size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any window can request.
	MaxLimit = 200
)

// Params holds windowing inputs from controllers or services.
type Params struct {
	Offset int
	Limit  int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizeOffset clamps negative offsets to zero.
func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// Window slices items down to the requested view. The returned slice aliases
// the input; callers must not mutate it.
func Window[T any](items []T, params Params) []T {
	offset := NormalizeOffset(params.Offset)
	limit := NormalizeLimit(params.Limit)

	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// HasMore reports whether rows remain past the returned window.
func HasMore(total int, params Params) bool {
	return NormalizeOffset(params.Offset)+NormalizeLimit(params.Limit) < total
}
