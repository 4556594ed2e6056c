package dedup

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]:
// twice the number of matching runes divided by the total rune count.
// It follows difflib's SequenceMatcher.ratio, including the autojunk
// heuristic for sequences of 200 runes or more.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// realQuickRatio is an upper bound on Ratio
func realQuickRatio(la, lb int) float64 {
	total := la + lb
	if total == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(total)
}

type span struct {
	alo, ahi, blo, bhi int
}

func matchingRunes(a, b []rune) int {
	b2j := indexRunes(b)

	total := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b, b2j, s)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// indexRunes maps each rune of b to its ascending positions,
// dropping popular runes from long sequences
func indexRunes(b []rune) map[rune][]int {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	if n := len(b); n >= 200 {
		limit := n/100 + 1
		for r, positions := range b2j {
			if len(positions) > limit {
				delete(b2j, r)
			}
		}
	}
	return b2j
}

// longestMatch finds the longest common block within s,
// preferring the earliest start in a, then in b. Runes dropped from
// b2j as popular are recovered by extending the block on both sides.
func longestMatch(a, b []rune, b2j map[rune][]int, s span) (besti, bestj, bestSize int) {
	besti, bestj = s.alo, s.blo

	j2len := make(map[int]int)
	for i := s.alo; i < s.ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	for besti > s.alo && bestj > s.blo && a[besti-1] == b[bestj-1] {
		besti, bestj, bestSize = besti-1, bestj-1, bestSize+1
	}
	for besti+bestSize < s.ahi && bestj+bestSize < s.bhi && a[besti+bestSize] == b[bestj+bestSize] {
		bestSize++
	}
	return besti, bestj, bestSize
}
