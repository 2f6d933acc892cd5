package client

// eventQueue is a plain FIFO of pending records. Time ordering is a
// contract on event sources (replay files are validated at load, the
// live peer is trusted), so the queue never reorders.
type eventQueue struct {
	records []Record
}

func (q *eventQueue) push(rec Record) {
	q.records = append(q.records, rec)
}

func (q *eventQueue) peek() (Record, bool) {
	if len(q.records) == 0 {
		return Record{}, false
	}
	return q.records[0], true
}

func (q *eventQueue) pop() (Record, bool) {
	if len(q.records) == 0 {
		return Record{}, false
	}
	rec := q.records[0]
	q.records = q.records[1:]
	return rec, true
}

func (q *eventQueue) len() int { return len(q.records) }
