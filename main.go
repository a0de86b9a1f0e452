package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/samuelfneumann/gomarl/agent/commnet"
	"github.com/samuelfneumann/gomarl/agent/policy"
	"github.com/samuelfneumann/gomarl/config"
	"github.com/samuelfneumann/gomarl/environment"
	"github.com/samuelfneumann/gomarl/environment/navigation"
	"github.com/samuelfneumann/gomarl/environment/wrappers"
	"github.com/samuelfneumann/gomarl/experiment"
	"github.com/samuelfneumann/gomarl/experiment/checkpointer"
	"github.com/samuelfneumann/gomarl/experiment/tracker"
	"github.com/samuelfneumann/gomarl/utils/progressbar"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func main() {
	configPath := flag.String("config", "", "YAML or JSON config file")
	epochs := flag.Int("epochs", 0, "number of training steps, overrides "+
		"the config if positive")
	out := flag.String("out", "runs", "directory for run outputs")
	render := flag.Bool("render", false, "render a greedy episode after "+
		"training")
	flag.Parse()

	logger := log.New(os.Stderr, "gomarl: ", log.LstdFlags)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Fatal(err)
		}
	}
	if *epochs > 0 {
		cfg.Epochs = *epochs
	}
	if cfg.Cuda {
		logger.Println("cuda requested but not supported, running on cpu")
	}

	// Every run writes to its own directory
	runID := uuid.NewString()
	dir := filepath.Join(*out, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Fatal(err)
	}
	cfg.ModelPath = filepath.Join(dir, filepath.Base(cfg.ModelPath))
	cfg.StatsPath = filepath.Join(dir, filepath.Base(cfg.StatsPath))
	if err := cfg.Save(filepath.Join(dir, "config.yaml")); err != nil {
		logger.Fatal(err)
	}

	nav, env, err := newEnvironment(cfg)
	if err != nil {
		logger.Fatal(err)
	}

	model, err := commnet.New(cfg, cfg.Seed)
	if err != nil {
		logger.Fatal(err)
	}
	defer model.Close()

	driver, err := experiment.NewDriver(env, model, policy.New(cfg, cfg.Seed),
		cfg, logger)
	if err != nil {
		logger.Fatal(err)
	}
	trainer, err := experiment.NewTrainer(cfg, driver, model, logger)
	if err != nil {
		logger.Fatal(err)
	}

	stats := tracker.New(cfg.StatsPath)
	trainer.Register(stats)
	if cfg.SaveModelFreq > 0 {
		ckpt, err := checkpointer.NewNStep(cfg.SaveModelFreq, model,
			checkpointer.Enumerate(filepath.Join(dir, "model.bin")))
		if err != nil {
			logger.Fatal(err)
		}
		trainer.RegisterCheckpointer(ckpt)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("run %v: %v agents, %v steps",
		runID, cfg.AgentNum, cfg.Epochs)))
	bar := progressbar.NewProgressBar(os.Stdout, 40, cfg.Epochs)
	trainer.SetProgressBar(bar)

	total, err := trainer.Run(cfg.Epochs)
	bar.Close()
	if err != nil {
		logger.Fatal(err)
	}

	if err := trainer.Save(); err != nil {
		logger.Fatal(err)
	}
	xlsx := strings.TrimSuffix(cfg.StatsPath, filepath.Ext(cfg.StatsPath)) +
		".xlsx"
	if err := stats.SaveXLSX(xlsx); err != nil {
		logger.Fatal(err)
	}

	fmt.Println(summary(total, dir))

	if *render {
		frames := filepath.Join(dir, "frames")
		if err := renderEpisode(cfg, model, env, nav, frames, logger); err != nil {
			logger.Fatal(err)
		}
		fmt.Printf("frames written to %v\n", frames)
	}
}

// newEnvironment returns the navigation environment of a configuration,
// wrapped in agent dropout if configured
func newEnvironment(cfg config.Config) (*navigation.Navigation,
	environment.Environment, error) {
	nav, err := navigation.New(navigation.Config{
		Agents:     cfg.AgentNum,
		Continuous: cfg.Continuous,
		Terminate:  true,
	}, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}

	if cfg.AgentDropout == 0 {
		return nav, nav, nil
	}
	env, err := wrappers.NewAgentDropout(nav, cfg.AgentDropout, cfg.Seed+1)
	return nav, env, err
}

// renderEpisode runs one greedy episode, rendering every step
func renderEpisode(cfg config.Config, model *commnet.CommNet,
	env environment.Environment, nav *navigation.Navigation, dir string,
	logger *log.Logger) error {
	recorder, err := wrappers.NewRecorder(env, nav, dir)
	if err != nil {
		return err
	}

	p := policy.New(cfg, cfg.Seed)
	p.Eval()
	driver, err := experiment.NewDriver(recorder, model, p, cfg, logger)
	if err != nil {
		return err
	}

	_, _, _, err = driver.RunEpisode()
	return err
}

func summary(s experiment.Stats, dir string) string {
	lines := []string{
		titleStyle.Render("training finished"),
		fmt.Sprintf("episodes        %v", s.Episodes),
		fmt.Sprintf("mean reward     %.4f", s.MeanReward()),
		fmt.Sprintf("mean return     %.4f", s.MeanReturn()),
		fmt.Sprintf("value loss      %.4f", s.ValueLoss()),
		fmt.Sprintf("action loss     %.4f", s.ActionLoss()),
		fmt.Sprintf("target updates  %v", s.TargetUpdates),
		fmt.Sprintf("outputs         %v", dir),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
