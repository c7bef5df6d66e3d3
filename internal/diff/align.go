package diff

import "slices"

// pair links an element of the old side to one of the new side; -1 marks
// a missing side
type pair struct {
	old, new int
}

// LCS tables larger than this fall back to positional pairing
const maxLCSCells = 4 << 20

// alignKeys pairs two sequences of comparable keys. Identical keys on the
// longest common subsequence are anchors; between anchors the remaining
// elements are paired by position, which is the minimal edit script when
// substitutions count as one edit. The sides are put in a canonical order
// first so that swapping the arguments swaps the pairs and nothing else.
func alignKeys(a, b []string) []pair {
	if slices.Compare(a, b) > 0 {
		pairs := alignKeys(b, a)
		for i := range pairs {
			pairs[i].old, pairs[i].new = pairs[i].new, pairs[i].old
		}
		return pairs
	}

	var pairs []pair
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		pairs = append(pairs, pair{prefix, prefix})
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	midA := a[prefix : len(a)-suffix]
	midB := b[prefix : len(b)-suffix]
	for _, p := range anchors(midA, midB) {
		pairs = append(pairs, pair{p.old + offset(p.old, prefix), p.new + offset(p.new, prefix)})
	}

	for i := 0; i < suffix; i++ {
		pairs = append(pairs, pair{len(a) - suffix + i, len(b) - suffix + i})
	}
	return pairs
}

func offset(index, prefix int) int {
	if index < 0 {
		return 0
	}
	return prefix
}

// anchors aligns the middle part of two sequences
func anchors(a, b []string) []pair {
	if len(a)*len(b) > maxLCSCells {
		return gap(0, len(a), 0, len(b))
	}

	// lengths[i][j] is the LCS length of a[i:] and b[j:]
	lengths := make([][]int, len(a)+1)
	for i := range lengths {
		lengths[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lengths[i][j] = lengths[i+1][j+1] + 1
			} else {
				lengths[i][j] = max(lengths[i+1][j], lengths[i][j+1])
			}
		}
	}

	var pairs []pair
	i, j := 0, 0
	gapA, gapB := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, gap(gapA, i, gapB, j)...)
			pairs = append(pairs, pair{i, j})
			i++
			j++
			gapA, gapB = i, j
		case lengths[i+1][j] >= lengths[i][j+1]:
			i++
		default:
			j++
		}
	}
	return append(pairs, gap(gapA, len(a), gapB, len(b))...)
}

// gap pairs a[ao:ae] with b[bo:be] by position
func gap(ao, ae, bo, be int) []pair {
	var pairs []pair
	for ao < ae && bo < be {
		pairs = append(pairs, pair{ao, bo})
		ao++
		bo++
	}
	for ; ao < ae; ao++ {
		pairs = append(pairs, pair{ao, -1})
	}
	for ; bo < be; bo++ {
		pairs = append(pairs, pair{-1, bo})
	}
	return pairs
}

// alignPosition pairs elements with the same index
func alignPosition(n, m int) []pair {
	return gap(0, n, 0, m)
}

// alignIdentity pairs elements with equal IDs. Current elements come first
// in their order, unmatched old elements follow in theirs.
func alignIdentity(a, b []string) []pair {
	index := make(map[string]int, len(a))
	for i, id := range a {
		if _, seen := index[id]; !seen && id != "" {
			index[id] = i
		}
	}
	used := make([]bool, len(a))
	var pairs []pair
	for j, id := range b {
		i, ok := index[id]
		if ok && !used[i] {
			used[i] = true
			pairs = append(pairs, pair{i, j})
			continue
		}
		pairs = append(pairs, pair{-1, j})
	}
	for i := range a {
		if !used[i] {
			pairs = append(pairs, pair{i, -1})
		}
	}
	return pairs
}
