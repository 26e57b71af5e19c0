package search

// GroupSteps partitions a plan into maximal runs of adjacent steps with
// the same mode, preserving original step order and indices. Groups are
// executed strictly in sequence; only steps inside a parallel group run
// concurrently.
func GroupSteps(plan []Step) []ExecutionGroup {
	var groups []ExecutionGroup
	for i, step := range plan {
		if len(groups) == 0 || groups[len(groups)-1].Mode != step.Mode {
			groups = append(groups, ExecutionGroup{Mode: step.Mode})
		}
		last := &groups[len(groups)-1]
		last.Steps = append(last.Steps, IndexedStep{Step: step, Index: i})
	}
	return groups
}
