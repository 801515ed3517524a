package annotation

// Sequence is the ordered list of committed annotations. Insertion order is
// draw order: later records are drawn on top. It only grows by Append and
// shrinks by Undo and Clear.
type Sequence struct {
	items []Annotation
}

// Append validates a record and adds a private copy of it to the end.
func (s *Sequence) Append(a Annotation) error {
	if a == nil {
		return ErrInvalidAnnotation
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.items = append(s.items, a.clone())
	return nil
}

// Undo removes the last record. It reports false on an empty sequence.
func (s *Sequence) Undo() (Annotation, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	last := s.items[len(s.items)-1]
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return last, true
}

// Clear removes every record.
func (s *Sequence) Clear() {
	s.items = nil
}

// Len returns the number of committed records.
func (s *Sequence) Len() int {
	return len(s.items)
}

// At returns a copy of the i-th record.
func (s *Sequence) At(i int) Annotation {
	return s.items[i].clone()
}

// All returns copies of the records in draw order.
func (s *Sequence) All() []Annotation {
	out := make([]Annotation, len(s.items))
	for i, a := range s.items {
		out[i] = a.clone()
	}
	return out
}

// Each calls fn for every record in draw order. fn must not modify the
// records it is handed.
func (s *Sequence) Each(fn func(Annotation)) {
	for _, a := range s.items {
		fn(a)
	}
}
