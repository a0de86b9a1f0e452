package experiment

// Stats accumulates the statistics of one or more training steps. Sums
// are kept so that merging is exact; the accessors return means.
//
// Stats are reported only and never alter the course of training.
type Stats struct {
	Step int // Last training step merged

	Episodes  int
	EnvSteps  int
	RewardSum float64 // Sum over episodes of the mean step reward
	ReturnSum float64

	// Number of optimizer steps that ran
	ValueUpdates  int
	ActionUpdates int
	ReplayRounds  int
	TargetUpdates int

	ValueLossSum      float64
	ActionLossSum     float64
	EntropySum        float64
	LogProbSum        float64
	ValueGradNormSum  float64
	ActionGradNormSum float64
}

// Merge returns the statistics of s followed by o
func (s Stats) Merge(o Stats) Stats {
	step := s.Step
	if o.Step > step {
		step = o.Step
	}
	return Stats{
		Step:              step,
		Episodes:          s.Episodes + o.Episodes,
		EnvSteps:          s.EnvSteps + o.EnvSteps,
		RewardSum:         s.RewardSum + o.RewardSum,
		ReturnSum:         s.ReturnSum + o.ReturnSum,
		ValueUpdates:      s.ValueUpdates + o.ValueUpdates,
		ActionUpdates:     s.ActionUpdates + o.ActionUpdates,
		ReplayRounds:      s.ReplayRounds + o.ReplayRounds,
		TargetUpdates:     s.TargetUpdates + o.TargetUpdates,
		ValueLossSum:      s.ValueLossSum + o.ValueLossSum,
		ActionLossSum:     s.ActionLossSum + o.ActionLossSum,
		EntropySum:        s.EntropySum + o.EntropySum,
		LogProbSum:        s.LogProbSum + o.LogProbSum,
		ValueGradNormSum:  s.ValueGradNormSum + o.ValueGradNormSum,
		ActionGradNormSum: s.ActionGradNormSum + o.ActionGradNormSum,
	}
}

// MeanReward returns the mean step reward per episode
func (s Stats) MeanReward() float64 {
	return div(s.RewardSum, s.Episodes)
}

// MeanReturn returns the mean episodic return
func (s Stats) MeanReturn() float64 {
	return div(s.ReturnSum, s.Episodes)
}

// MeanSteps returns the mean episode length
func (s Stats) MeanSteps() float64 {
	return div(float64(s.EnvSteps), s.Episodes)
}

// ValueLoss returns the mean value loss over value updates
func (s Stats) ValueLoss() float64 {
	return div(s.ValueLossSum, s.ValueUpdates)
}

// ActionLoss returns the mean action loss over action updates
func (s Stats) ActionLoss() float64 {
	return div(s.ActionLossSum, s.ActionUpdates)
}

// Entropy returns the mean policy entropy over action updates
func (s Stats) Entropy() float64 {
	return div(s.EntropySum, s.ActionUpdates)
}

// LogProb returns the mean log-probability of the taken actions over
// action updates
func (s Stats) LogProb() float64 {
	return div(s.LogProbSum, s.ActionUpdates)
}

// ValueGradNorm returns the mean value gradient norm
func (s Stats) ValueGradNorm() float64 {
	return div(s.ValueGradNormSum, s.ValueUpdates)
}

// ActionGradNorm returns the mean action gradient norm
func (s Stats) ActionGradNorm() float64 {
	return div(s.ActionGradNormSum, s.ActionUpdates)
}

// Fields returns the names of the columns of Values
func (s Stats) Fields() []string {
	return []string{
		"step", "episodes", "mean_steps", "mean_reward", "mean_return",
		"value_loss", "action_loss", "entropy", "log_prob",
		"value_grad_norm", "action_grad_norm", "value_updates",
		"action_updates", "replay_rounds", "target_updates",
	}
}

// Values returns the statistics as a row of floats
func (s Stats) Values() []float64 {
	return []float64{
		float64(s.Step), float64(s.Episodes), s.MeanSteps(),
		s.MeanReward(), s.MeanReturn(), s.ValueLoss(), s.ActionLoss(),
		s.Entropy(), s.LogProb(), s.ValueGradNorm(), s.ActionGradNorm(),
		float64(s.ValueUpdates), float64(s.ActionUpdates),
		float64(s.ReplayRounds), float64(s.TargetUpdates),
	}
}

func div(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
