package event

// Event is a single unit of delivery: an opaque body plus optional
// string headers carried end to end.
type Event struct {
	Headers map[string]string
	Body    []byte
}

// New builds an event around body without copying it.
func New(body []byte) Event {
	return Event{Body: body}
}

// WithHeader returns the event with the header set, allocating the
// header map on first use.
func (e Event) WithHeader(key, value string) Event {
	if e.Headers == nil {
		e.Headers = make(map[string]string, 1)
	}
	e.Headers[key] = value
	return e
}
