// Package combat resolves a single battle exchange. It performs no I/O and is fully
// determined by its inputs.
package combat

// Outcome of the graded answer that triggered the exchange.
type Outcome int

const (
	// Correct means the player attacks the enemy.
	Correct Outcome = iota
	// Wrong means the enemy attacks the player. Timeouts are wrong answers.
	Wrong
)

func (o Outcome) String() string {
	if o == Correct {
		return "correct"
	}
	return "wrong"
}

type Status string

const (
	InProgress Status = "in_progress"
	Won        Status = "won"
	Lost       Status = "lost"
)

// Effects is the set of one-shot buffs active on the player.
type Effects struct {
	// Power doubles the player's damage on every correct exchange until the level completes.
	Power bool
	// Immunity nullifies the next enemy attack and is consumed by it.
	Immunity bool
}

// Exchange is the input of one resolution.
type Exchange struct {
	PlayerHP     int
	EnemyHP      int
	PlayerDamage int
	EnemyDamage  int
	Outcome      Outcome
	Effects      Effects
}

// Result is the state after the exchange.
type Result struct {
	PlayerHP    int
	EnemyHP     int
	DamageDealt int // to the enemy
	DamageTaken int // by the player
	// Blocked is set when Immunity absorbed the enemy attack.
	Blocked bool
	// Effects after consumption.
	Effects Effects
	Status  Status
}

// Resolve applies one exchange. Health never drops below zero. Only the side that attacked
// can end the battle: a correct hit may win it, a landed enemy attack may lose it.
func Resolve(x Exchange) Result {
	res := Result{
		PlayerHP: x.PlayerHP,
		EnemyHP:  x.EnemyHP,
		Effects:  x.Effects,
		Status:   InProgress,
	}

	// 只有本回合的攻击方能决定胜负
	switch x.Outcome {
	case Correct:
		dmg := nonNegative(x.PlayerDamage)
		if x.Effects.Power {
			dmg *= 2
		}
		res.DamageDealt = dmg
		res.EnemyHP = floor(x.EnemyHP - dmg)
		if res.EnemyHP <= 0 {
			res.Status = Won
		}
	default:
		if x.Effects.Immunity {
			res.Blocked = true
			res.Effects.Immunity = false
			break
		}
		dmg := nonNegative(x.EnemyDamage)
		res.DamageTaken = dmg
		res.PlayerHP = floor(x.PlayerHP - dmg)
		if res.PlayerHP <= 0 {
			res.Status = Lost
		}
	}
	return res
}

func floor(hp int) int {
	if hp < 0 {
		return 0
	}
	return hp
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
