package domain

// Batch is an ordered group of messages that is published as one aggregate.
type Batch struct {
	// Messages in the order they were accepted.
	Messages []Message

	// TotalBytes is the sum of all message lengths.
	TotalBytes int
}

// NewBatch creates an empty batch with room for capacity messages.
func NewBatch(capacity int) *Batch {
	if capacity < 0 {
		capacity = 0
	}
	return &Batch{
		Messages: make([]Message, 0, capacity),
	}
}

// Add appends a message to the batch.
func (b *Batch) Add(msg Message) {
	b.Messages = append(b.Messages, msg)
	b.TotalBytes += len(msg)
}

// Size returns the number of messages in the batch.
func (b *Batch) Size() int {
	return len(b.Messages)
}

// Aggregate concatenates all payloads in batch order into a freshly
// allocated slice.
func (b *Batch) Aggregate() []byte {
	out := make([]byte, 0, b.TotalBytes)
	for _, m := range b.Messages {
		out = append(out, m...)
	}
	return out
}
