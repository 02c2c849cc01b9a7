package challenge_test

import (
	"testing"

	"code_quest_backend/internal/game/challenge"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name    string
		answer  []string
		correct []string
		want    bool
	}{
		{"exact", []string{"x"}, []string{"x"}, true},
		{"multi blank", []string{"y", "z"}, []string{"y", "z"}, true},
		{"wrong blank", []string{"y", "q"}, []string{"y", "z"}, false},
		{"short", []string{"y"}, []string{"y", "z"}, false},
		{"long", []string{"y", "z", "w"}, []string{"y", "z"}, false},
		{"order matters", []string{"z", "y"}, []string{"y", "z"}, false},
		{"case sensitive", []string{"X"}, []string{"x"}, false},
		{"both empty", []string{}, []string{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, challenge.Grade(tc.answer, tc.correct))
		})
	}
}

func TestGrade_Property_MatchesElementwiseEquality(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		correct := rapid.SliceOfN(rapid.StringMatching(`[a-c]{0,2}`), 0, 4).Draw(rt, "correct")
		answer := rapid.SliceOfN(rapid.StringMatching(`[a-c]{0,2}`), 0, 4).Draw(rt, "answer")

		want := len(answer) == len(correct)
		for i := 0; want && i < len(correct); i++ {
			want = answer[i] == correct[i]
		}
		assert.Equal(rt, want, challenge.Grade(answer, correct))
		assert.True(rt, challenge.Grade(correct, correct))
	})
}

func TestEffectiveAnswer(t *testing.T) {
	correct := []string{"printf", "héllo", ""}
	assert.Equal(t, correct, challenge.EffectiveAnswer(correct, false))
	assert.Equal(t, []string{"ftnirp", "olléh", ""}, challenge.EffectiveAnswer(correct, true))
	// input untouched
	assert.Equal(t, "printf", correct[0])
}

func TestEffectiveAnswer_Property_ReverseTwiceIsIdentity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		correct := rapid.SliceOfN(rapid.String(), 0, 5).Draw(rt, "correct")
		once := challenge.EffectiveAnswer(correct, true)
		assert.Len(rt, once, len(correct))
		assert.Equal(rt, challenge.EffectiveAnswer(correct, false), challenge.EffectiveAnswer(once, true))
	})
}

func TestEnqueueRemove(t *testing.T) {
	var q []uint
	q = challenge.Enqueue(q, 2)
	q = challenge.Enqueue(q, 5)
	q = challenge.Enqueue(q, 2)
	assert.Equal(t, []uint{2, 5}, q)

	q = challenge.Remove(q, 2)
	assert.Equal(t, []uint{5}, q)
	q = challenge.Remove(q, 9)
	assert.Equal(t, []uint{5}, q)
}

func TestEnqueue_Property_NoDuplicates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ops := rapid.SliceOf(rapid.UintRange(1, 6)).Draw(rt, "ops")
		removes := rapid.SliceOf(rapid.Bool()).Draw(rt, "removes")
		var q []uint
		for i, id := range ops {
			if i < len(removes) && removes[i] {
				q = challenge.Remove(q, id)
			} else {
				q = challenge.Enqueue(q, id)
			}
			seen := map[uint]bool{}
			for _, v := range q {
				assert.False(rt, seen[v], "duplicate %d in %v", v, q)
				seen[v] = true
			}
		}
	})
}

func TestBoardNext(t *testing.T) {
	order := []uint{1, 2, 3}

	b := challenge.Board{Order: order, Answers: map[uint][]string{}}
	id, ok := b.Next()
	assert.True(t, ok)
	assert.Equal(t, uint(1), id)

	b.Answers = map[uint][]string{1: {"x"}}
	id, _ = b.Next()
	assert.Equal(t, uint(2), id)

	// retry queue wins over new material
	b.Answers = map[uint][]string{1: {"x"}, 2: {"bad"}}
	b.Wrong = []uint{2}
	id, _ = b.Next()
	assert.Equal(t, uint(2), id)

	// revealed answers wait for confirmation before new material
	b.Wrong = nil
	b.Revealed = []uint{2}
	id, _ = b.Next()
	assert.Equal(t, uint(2), id)

	b.Revealed = nil
	b.Answers[3] = []string{"z"}
	_, ok = b.Next()
	assert.False(t, ok)
}

func TestBoardNext_Property_PrefersRetryHead(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		order := make([]uint, n)
		for i := range order {
			order[i] = uint(i + 1)
		}
		answers := map[uint][]string{}
		var wrong []uint
		for _, id := range order {
			switch rapid.IntRange(0, 2).Draw(rt, "state") {
			case 1:
				answers[id] = []string{"ok"}
			case 2:
				answers[id] = []string{"bad"}
				wrong = challenge.Enqueue(wrong, id)
			}
		}
		b := challenge.Board{Order: order, Answers: answers, Wrong: wrong}
		id, ok := b.Next()
		if len(wrong) > 0 {
			assert.True(rt, ok)
			assert.Equal(rt, wrong[0], id)
			assert.False(rt, b.Complete())
			return
		}
		if ok {
			_, answered := answers[id]
			assert.False(rt, answered)
			assert.False(rt, b.Complete())
		} else {
			assert.True(rt, b.Complete())
		}
	})
}

func TestBoardComplete(t *testing.T) {
	order := []uint{1, 2}
	assert.False(t, challenge.Board{}.Complete(), "empty level never completes")
	assert.False(t, challenge.Board{Order: order, Answers: map[uint][]string{1: {"x"}}}.Complete())
	assert.False(t, challenge.Board{
		Order:   order,
		Answers: map[uint][]string{1: {"x"}, 2: {"y"}},
		Wrong:   []uint{2},
	}.Complete(), "answered but queued for retry")
	assert.False(t, challenge.Board{
		Order:    order,
		Answers:  map[uint][]string{1: {"x"}, 2: {"y"}},
		Revealed: []uint{2},
	}.Complete(), "revealed but unconfirmed")
	assert.True(t, challenge.Board{Order: order, Answers: map[uint][]string{1: {"x"}, 2: {"y", "z"}}}.Complete())
}
