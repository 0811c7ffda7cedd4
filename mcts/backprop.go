package mcts

// BatchBackpropagate expands each leaf recorded by a prior BatchTraverse
// with the external model's outputs for that leaf, then walks its search
// path from leaf to root updating visit counts, value sums, and the
// root's MinMaxStats under one- or two-player semantics.
func BatchBackpropagate(codec ActionCodec, depth int32, gamma float64, valuePrefixes []float32, values []float64, policies [][]float32, minMaxStatsList MinMaxStatsList, results *SearchResults, isResetList []bool, toPlayBatch []int8) error {
	n := len(results.Nodes)
	if len(valuePrefixes) != n || len(values) != n || len(policies) != n ||
		len(minMaxStatsList) != n || len(isResetList) != n || len(toPlayBatch) != n {
		return ErrBatchSizeMismatch
	}
	for _, tp := range toPlayBatch {
		if tp != -1 && tp != 1 && tp != 2 {
			return ErrInvalidToPlay
		}
	}

	for i := 0; i < n; i++ {
		leaf := results.Nodes[i]
		if err := leaf.Expand(codec, results.LeafToPlay[i], depth, int32(i), valuePrefixes[i], policies[i]); err != nil {
			return err
		}
		leaf.IsReset = isResetList[i]

		path := results.SearchPaths[i]
		if len(path) == 0 {
			continue // EmptyPath: silent no-op.
		}

		toPlay := toPlayBatch[i]
		bv := values[i]
		mm := &minMaxStatsList[i]

		for j := len(path) - 1; j >= 0; j-- {
			node := path[j]

			var parentValuePrefix float32
			var parentIsReset bool
			if j > 0 {
				parent := path[j-1]
				parentValuePrefix = parent.ValuePrefix
				parentIsReset = parent.IsReset
			}
			node.ParentValuePrefix = parentValuePrefix

			if toPlay == -1 {
				node.ValueSum += bv
			} else if node.ToPlay == toPlay {
				node.ValueSum += bv
			} else {
				node.ValueSum -= bv
			}
			node.VisitCount++

			reward := float64(node.ValuePrefix) - float64(parentValuePrefix)
			if parentIsReset {
				reward = float64(node.ValuePrefix)
			}

			mm.Update(reward + gamma*node.Value())

			if toPlay == -1 {
				bv = reward + gamma*bv
			} else if node.ToPlay == toPlay {
				bv = -reward + gamma*bv
			} else {
				bv = reward + gamma*bv
			}
		}
	}
	return nil
}
