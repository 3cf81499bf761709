package conversation

import (
	"strconv"
	"sync"
	"time"
)

// idSource hands out millisecond timestamps as IDs, bumping by one when two requests
// land in the same tick so IDs stay strictly increasing within a controller.
type idSource struct {
	mu   sync.Mutex
	last int64
}

func (s *idSource) next(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := now.UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}
