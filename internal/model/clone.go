package model

// Deep copies so snapshots handed out by stores and the layout state never
// alias each other's slices.

func (t Track) Clone() Track {
	t.AcceptedCarTypes = append([]string(nil), t.AcceptedCarTypes...)
	t.PlacedCars = append([]ID(nil), t.PlacedCars...)
	return t
}

func (i Industry) Clone() Industry {
	tracks := make([]Track, len(i.Tracks))
	for k, t := range i.Tracks {
		tracks[k] = t.Clone()
	}
	i.Tracks = tracks
	return i
}

func (c RollingStock) Clone() RollingStock {
	if c.CurrentLocation != nil {
		loc := *c.CurrentLocation
		c.CurrentLocation = &loc
	}
	if c.Destination != nil {
		dst := *c.Destination
		c.Destination = &dst
	}
	return c
}

func (r TrainRoute) Clone() TrainRoute {
	r.Stations = append([]ID(nil), r.Stations...)
	return r
}

func (s Switchlist) Clone() Switchlist {
	ops := make([]Operation, len(s.Operations))
	for k, op := range s.Operations {
		if op.ExecutedAt != nil {
			at := *op.ExecutedAt
			op.ExecutedAt = &at
		}
		ops[k] = op
	}
	s.Operations = ops
	s.Skipped = append(make([]SkippedCar, 0, len(s.Skipped)), s.Skipped...)
	return s
}

// Done reports whether every operation has been executed.
func (s Switchlist) Done() bool {
	for _, op := range s.Operations {
		if op.Status != OperationExecuted {
			return false
		}
	}
	return true
}
