package hooking

import (
	"sort"
	"sync"
)

// TagFunc extracts the tag that a hook invocation is counted under. Returning
// an empty string skips the invocation.
type TagFunc func(ctx HookCtx) string

// TagCounter counts hook invocations per tag, for example the number of
// commands issued per command kind.
type TagCounter struct {
	pos     *HookPos
	tagFunc TagFunc
	lock    sync.Mutex

	tagNames []string
	tagCount map[string]uint64
}

// NewTagCounter creates a TagCounter that only looks at invocations at the
// given position. A nil position accepts every position.
func NewTagCounter(pos *HookPos, tagFunc TagFunc) *TagCounter {
	return &TagCounter{
		pos:      pos,
		tagFunc:  tagFunc,
		tagCount: make(map[string]uint64),
	}
}

// Func counts the invocation.
func (t *TagCounter) Func(ctx HookCtx) {
	if t.pos != nil && ctx.Pos != t.pos {
		return
	}

	tag := t.tagFunc(ctx)
	if tag == "" {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.tagCount[tag]; !ok {
		t.tagNames = append(t.tagNames, tag)
	}

	t.tagCount[tag]++
}

// TagNames returns the tags seen so far, sorted.
func (t *TagCounter) TagNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := append([]string(nil), t.tagNames...)
	sort.Strings(names)

	return names
}

// TagCount returns the number of invocations counted under a tag.
func (t *TagCounter) TagCount(tag string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tagCount[tag]
}
