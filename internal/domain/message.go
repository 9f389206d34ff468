package domain

// Message is an opaque payload handed to the writer. The core never looks
// inside it. Callers must not modify a Message after handing it over.
type Message []byte

// Len returns the payload length in bytes.
func (m Message) Len() int {
	return len(m)
}
