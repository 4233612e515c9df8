package server

// Ack is the renderer's answer to a delivered update batch.
type Ack uint8

const (
	// AckSuppressed tells the engine the batch was consumed offline and
	// post-display hooks must not run.
	AckSuppressed Ack = iota

	// AckDelivered tells the engine the batch reached a live display.
	AckDelivered
)

// String returns the string representation of the Ack.
func (a Ack) String() string {
	switch a {
	case AckSuppressed:
		return "suppressed"
	case AckDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Batch is the set of components whose output changed in one render pass,
// in render order.
type Batch struct {
	Updated []int
}

func (b *Batch) add(id int) {
	b.Updated = append(b.Updated, id)
}

// Len returns the number of updated components.
func (b Batch) Len() int {
	return len(b.Updated)
}
