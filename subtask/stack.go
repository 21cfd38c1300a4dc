package subtask

// WorkItem is a scheduled operation. Depth is its nesting level and Revisits
// counts how many times it has been requeued behind its own sub-operations.
type WorkItem struct {
	Depth     int
	Operation Operation
	Revisits  int
}

// stack is a LIFO of work items. The top is the last element.
type stack struct {
	items []WorkItem
}

func (s *stack) push(item WorkItem) {
	s.items = append(s.items, item)
}

func (s *stack) pop() (WorkItem, bool) {
	if len(s.items) == 0 {
		return WorkItem{}, false
	}
	top := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = WorkItem{}
	s.items = s.items[:len(s.items)-1]
	return top, true
}

func (s *stack) peek() (WorkItem, bool) {
	if len(s.items) == 0 {
		return WorkItem{}, false
	}
	return s.items[len(s.items)-1], true
}

// pushAll pushes ops in list order, so the last one is popped first.
func (s *stack) pushAll(depth int, ops []Operation) {
	for _, op := range ops {
		s.push(WorkItem{Depth: depth, Operation: op})
	}
}

func (s *stack) len() int { return len(s.items) }

// snapshot returns the items top first.
func (s *stack) snapshot() []WorkItem {
	out := make([]WorkItem, len(s.items))
	for i := range s.items {
		out[i] = s.items[len(s.items)-1-i]
	}
	return out
}
