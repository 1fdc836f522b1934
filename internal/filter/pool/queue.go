package pool

// jobQueue is a priority heap of pending handles: compile jobs outrank
// render jobs; within one priority class, FIFO by submission id.
type jobQueue []*Handle

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	pi, pj := q[i].job.Kind.priority(), q[j].job.Kind.priority()
	if pi != pj {
		return pi < pj
	}
	return q[i].id < q[j].id
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) { *q = append(*q, x.(*Handle)) }

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	h := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return h
}
