// Package challenge holds the grading and retry-queue rules of a level. Everything here is
// pure so the submission flow can be replayed in tests without a database.
package challenge

// Grade reports whether answer matches correct blank by blank. Lengths must match.
func Grade(answer, correct []string) bool {
	if len(answer) != len(correct) {
		return false
	}
	for i := range correct {
		if answer[i] != correct[i] {
			return false
		}
	}
	return true
}

// EffectiveAnswer returns the answer the player must give. Under the reversal curse every
// blank is reversed character by character; the blank order is kept.
func EffectiveAnswer(correct []string, reversed bool) []string {
	out := make([]string, len(correct))
	for i, blank := range correct {
		if reversed {
			out[i] = reverse(blank)
		} else {
			out[i] = blank
		}
	}
	return out
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// Enqueue appends id to the retry queue unless it is already queued.
func Enqueue(queue []uint, id uint) []uint {
	if Contains(queue, id) {
		return queue
	}
	return append(queue, id)
}

// Remove drops every occurrence of id and keeps the order of the rest.
func Remove(queue []uint, id uint) []uint {
	out := queue[:0:0]
	for _, q := range queue {
		if q != id {
			out = append(out, q)
		}
	}
	return out
}

func Contains(queue []uint, id uint) bool {
	for _, q := range queue {
		if q == id {
			return true
		}
	}
	return false
}

// Board is the answer state of one level attempt.
type Board struct {
	Order    []uint            // challenge ids in play order
	Answers  map[uint][]string // latest recorded answer per challenge
	Wrong    []uint            // FIFO retry queue
	Revealed []uint            // answers filled by a Reveal potion, awaiting confirmation
}

// Next returns the challenge to serve: the head of the retry queue first, then a revealed
// challenge waiting for confirmation, then the first challenge never answered.
func (b Board) Next() (uint, bool) {
	if len(b.Wrong) > 0 {
		return b.Wrong[0], true
	}
	if len(b.Revealed) > 0 {
		return b.Revealed[0], true
	}
	for _, id := range b.Order {
		if _, ok := b.Answers[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

// Complete reports whether every challenge has an answer and nothing is left to retry or confirm.
func (b Board) Complete() bool {
	if len(b.Order) == 0 || len(b.Wrong) > 0 || len(b.Revealed) > 0 {
		return false
	}
	for _, id := range b.Order {
		if _, ok := b.Answers[id]; !ok {
			return false
		}
	}
	return true
}
