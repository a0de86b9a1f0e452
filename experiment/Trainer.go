package experiment

import (
	"log"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/gomarl/agent"
	"github.com/samuelfneumann/gomarl/config"
	"github.com/samuelfneumann/gomarl/experiment/checkpointer"
	"github.com/samuelfneumann/gomarl/experiment/tracker"
	"github.com/samuelfneumann/gomarl/expreplay"
	"github.com/samuelfneumann/gomarl/solver"
	"github.com/samuelfneumann/gomarl/timestep"
	"github.com/samuelfneumann/gomarl/utils/floatutils"
	"github.com/samuelfneumann/gomarl/utils/progressbar"
	G "gorgonia.org/gorgonia"
)

// gradLimit is the bound of elementwise gradient clipping
const gradLimit = 1.0

// Trainer runs the training loop of a model: each step it collects a
// batch of episodes with a Driver and applies a value update followed
// by an action update, computed from the fresh batch, from replayed
// episodes, or both.
//
// Trainer is single threaded. Rollouts, updates and target
// synchronization never overlap.
type Trainer struct {
	cfg    config.Config
	family config.Family

	driver *Driver
	model  agent.Model
	replay *expreplay.Buffer // nil if replay is disabled

	valueSolver  *solver.Solver
	actionSolver *solver.Solver

	trackers      []*tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	progress      *progressbar.ProgressBar

	logger *log.Logger
	warmed bool // Whether the end of replay warm-up has been logged
}

// NewTrainer returns a new Trainer of a model whose episodes are
// collected by driver
func NewTrainer(c config.Config, driver *Driver, model agent.Model,
	logger *log.Logger) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newTrainer")
	}
	if logger == nil {
		logger = log.Default()
	}

	valueSolver, err := solver.FromConfig(c.Optimizer, c.ValueLRate)
	if err != nil {
		return nil, errors.Wrap(err, "newTrainer: value solver")
	}
	actionSolver, err := solver.FromConfig(c.Optimizer, c.PolicyLRate)
	if err != nil {
		return nil, errors.Wrap(err, "newTrainer: action solver")
	}

	var replay *expreplay.Buffer
	if c.Replay {
		replay, err = expreplay.New(c.ReplayBufferSize, c.Seed)
		if err != nil {
			return nil, errors.Wrap(err, "newTrainer")
		}
	}

	return &Trainer{
		cfg:          c,
		family:       c.AlgorithmFamily(),
		driver:       driver,
		model:        model,
		replay:       replay,
		valueSolver:  valueSolver,
		actionSolver: actionSolver,
		logger:       logger,
	}, nil
}

// Register registers a tracker which records the statistics of every
// training step run by Run
func (t *Trainer) Register(tr *tracker.Tracker) {
	t.trackers = append(t.trackers, tr)
}

// RegisterCheckpointer registers a checkpointer which is given every
// training step run by Run
func (t *Trainer) RegisterCheckpointer(c checkpointer.Checkpointer) {
	t.checkpointers = append(t.checkpointers, c)
}

// SetProgressBar sets a progress bar incremented after every training
// step run by Run
func (t *Trainer) SetProgressBar(p *progressbar.ProgressBar) {
	t.progress = p
}

// Replay returns the experience replay buffer, or nil if replay is
// disabled
func (t *Trainer) Replay() *expreplay.Buffer {
	return t.replay
}

// RunBatch collects one epoch of episodes, adding each to the replay
// buffer if replay is enabled, and returns all their transitions as a
// single batch
func (t *Trainer) RunBatch() (timestep.Batch, Stats, error) {
	episodes := make([]*timestep.Episode, 0, t.cfg.EpochSize)
	var stats Stats

	for i := 0; i < t.cfg.EpochSize; i++ {
		episode, meanReward, steps, err := t.driver.RunEpisode()
		if err != nil {
			return timestep.Batch{}, stats, errors.Wrap(err, "runBatch")
		}

		episodes = append(episodes, episode)
		if t.replay != nil {
			t.replay.Add(episode)
		}

		stats.Episodes++
		stats.EnvSteps += steps
		stats.RewardSum += meanReward
		stats.ReturnSum += episode.Return()
	}

	return timestep.NewBatch(episodes...), stats, nil
}

// TrainBatch applies the updates of one training step. The on-policy
// family updates from the fresh batch and then, if replay is enabled,
// from replayed episodes; the off-policy family updates from replayed
// episodes only.
//
// On error the returned statistics record the updates that ran.
func (t *Trainer) TrainBatch(batch timestep.Batch, step int) (Stats, error) {
	var stats Stats

	if t.family == config.OnPolicy {
		s, err := t.update(batch, step)
		stats = stats.Merge(s)
		if err != nil {
			return stats, errors.Wrap(err, "trainBatch")
		}
	}

	if t.replay != nil {
		s, err := t.replayUpdates(step)
		stats = stats.Merge(s)
		if err != nil {
			return stats, errors.Wrap(err, "trainBatch")
		}
	}
	return stats, nil
}

// replayUpdates runs the replay rounds of a training step. Each round
// draws an independent sample and performs its own updates.
func (t *Trainer) replayUpdates(step int) (Stats, error) {
	var stats Stats
	if t.replay.Len() < t.cfg.ReplayWarmup {
		return stats, nil
	}
	if !t.warmed {
		t.logger.Printf("replay warm-up finished with %v episodes at step %v",
			t.replay.Len(), step)
		t.warmed = true
	}

	target := t.cfg.EpochSize * t.cfg.MaxSteps
	for i := 0; i < t.cfg.ReplayIters; i++ {
		episodes, err := t.replay.SampleEpisodes(target)
		if err != nil {
			return stats, errors.Wrapf(err, "replay round %v", i)
		}

		s, err := t.update(timestep.NewBatch(episodes...), step)
		stats = stats.Merge(s)
		stats.ReplayRounds++
		if err != nil {
			return stats, errors.Wrapf(err, "replay round %v", i)
		}
	}
	return stats, nil
}

// update computes the losses of a batch and steps the value solver and
// then the action solver
func (t *Trainer) update(batch timestep.Batch, step int) (Stats, error) {
	stats := Stats{Step: step}

	loss, err := t.model.Loss(batch, step)
	if err != nil {
		return stats, errors.Wrap(err, "update")
	}
	defer loss.Close()

	if !floatutils.IsFinite(loss.Value, loss.Action) {
		return stats, errors.Wrapf(agent.ErrNonFinite, "update: value loss "+
			"%v, action loss %v", loss.Value, loss.Action)
	}

	norm, err := t.step(t.valueSolver, loss.ValueModel, loss.CommitValue)
	if err != nil {
		return stats, errors.Wrap(err, "update: value")
	}
	stats.ValueUpdates++
	stats.ValueLossSum += loss.Value
	stats.ValueGradNormSum += norm

	norm, err = t.step(t.actionSolver, loss.ActionModel, loss.CommitAction)
	if err != nil {
		return stats, errors.Wrap(err, "update: action")
	}
	stats.ActionUpdates++
	stats.ActionLossSum += loss.Action
	stats.EntropySum += loss.Entropy
	stats.LogProbSum += loss.LogProb
	stats.ActionGradNormSum += norm

	return stats, nil
}

// step optionally clips the gradients of a parameter group, steps its
// solver and commits the new values. It returns the gradient norm seen
// by the solver.
func (t *Trainer) step(s *solver.Solver, model []G.ValueGrad,
	commit func() error) (float64, error) {
	if t.cfg.GradClip {
		if err := solver.Clip(model, gradLimit); err != nil {
			return 0, err
		}
	}
	norm, err := solver.GradNorm(model)
	if err != nil {
		return 0, err
	}
	if !floatutils.IsFinite(norm) {
		return 0, errors.Wrap(agent.ErrNonFinite, "gradient norm")
	}

	if err := s.Step(model); err != nil {
		return 0, err
	}
	if commit != nil {
		if err := commit(); err != nil {
			return 0, err
		}
	}
	return norm, nil
}

// Train runs training step t: it collects a batch, updates the model
// and synchronizes the target parameters every TargetUpdateFreq steps,
// on steps where t mod TargetUpdateFreq == TargetUpdateFreq - 1. No
// synchronization runs if target parameters are disabled.
func (t *Trainer) Train(step int) (Stats, error) {
	batch, stats, err := t.RunBatch()
	stats.Step = step
	if err != nil {
		return stats, errors.Wrapf(err, "train: step %v", step)
	}

	s, err := t.TrainBatch(batch, step)
	stats = stats.Merge(s)
	if err != nil {
		return stats, errors.Wrapf(err, "train: step %v", step)
	}

	freq := t.cfg.TargetUpdateFreq
	if t.cfg.Target && freq > 0 && step%freq == freq-1 {
		if err := t.model.UpdateTarget(); err != nil {
			return stats, errors.Wrapf(err, "train: step %v", step)
		}
		stats.TargetUpdates++
	}
	return stats, nil
}

// Run runs training steps 0 to epochs-1, tracking and checkpointing
// after every step. It returns the merged statistics of all steps.
func (t *Trainer) Run(epochs int) (Stats, error) {
	var total Stats
	for step := 0; step < epochs; step++ {
		stats, err := t.Train(step)
		total = total.Merge(stats)
		if err != nil {
			return total, errors.Wrap(err, "run")
		}

		for _, tr := range t.trackers {
			if err := tr.Track(stats); err != nil {
				return total, errors.Wrap(err, "run")
			}
		}
		for _, c := range t.checkpointers {
			if err := c.Checkpoint(step); err != nil {
				return total, errors.Wrap(err, "run")
			}
		}

		if t.progress != nil {
			t.progress.Describe("reward %.3f  value loss %.3f",
				stats.MeanReward(), stats.ValueLoss())
			t.progress.Increment()
			t.progress.Display()
		}
	}
	return total, nil
}

// Save saves the data of all registered trackers along with the model
// parameters if a model path is configured
func (t *Trainer) Save() error {
	for _, tr := range t.trackers {
		if err := tr.Save(); err != nil {
			return errors.Wrap(err, "save")
		}
	}
	if t.cfg.ModelPath != "" {
		if err := t.model.Save(t.cfg.ModelPath); err != nil {
			return errors.Wrap(err, "save")
		}
	}
	return nil
}
