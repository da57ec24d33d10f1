package prison

import "fmt"

// Key identifies a logical element across its lifetime in an Arena. It is
// opaque and comparable by structural equality; callers should treat it as a
// value type and never construct one by hand.
type Key struct {
	index      uint32
	generation uint32
}

// Index returns the raw slot index this key was minted for. Exposed for
// callers that want the cheaper raw-index entry points (VisitRefIdx etc.)
// after having validated the key once.
func (k Key) Index() uint32 { return k.index }

// Generation returns the generation this key was minted against.
func (k Key) Generation() uint32 { return k.generation }

func (k Key) String() string {
	return fmt.Sprintf("Key(%d, %d)", k.index, k.generation)
}

// GoString renders k as a Go expression, for %#v in test failure output.
func (k Key) GoString() string {
	return fmt.Sprintf("prison.Key{index: %d, generation: %d}", k.index, k.generation)
}
