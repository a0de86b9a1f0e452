package wrappers

import (
	"testing"

	"github.com/samuelfneumann/gomarl/environment/navigation"
)

func newDropout(t *testing.T, agents int, p float64) (*AgentDropout,
	*navigation.Navigation) {
	t.Helper()
	nav, err := navigation.New(navigation.Config{Agents: agents}, 1)
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewAgentDropout(nav, p, 7)
	if err != nil {
		t.Fatal(err)
	}
	return d, nav
}

func TestAgentDropoutKeepsMinAlive(t *testing.T) {
	d, _ := newDropout(t, 5, 0.99)

	for episode := 0; episode < 20; episode++ {
		obs, info, err := d.Reset()
		if err != nil {
			t.Fatal(err)
		}
		if alive := info.NumAlive(5); alive < MinAlive {
			t.Fatalf("alive agents \n\twant(>= %v) \n\thave(%v)", MinAlive,
				alive)
		}

		for i, o := range obs {
			if info.Alive(i) {
				continue
			}
			for _, v := range o {
				if v != 0 {
					t.Errorf("dead agent %v observation \n\twant(%v) "+
						"\n\thave(%v)", i, "zeros", o)
					break
				}
			}
		}
	}
}

func TestAgentDropoutNoDropout(t *testing.T) {
	d, _ := newDropout(t, 3, 0)
	_, info, err := d.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if info.NumAlive(3) != 3 {
		t.Errorf("alive agents \n\twant(%v) \n\thave(%v)", 3,
			info.NumAlive(3))
	}
}

func TestAgentDropoutDeadAgentsDoNotMove(t *testing.T) {
	d, nav := newDropout(t, 4, 0.5)

	// Find an episode with a dead agent
	var dead = -1
	for episode := 0; episode < 50 && dead < 0; episode++ {
		if _, _, err := d.Reset(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 4; i++ {
			if !d.Alive(i) {
				dead = i
				break
			}
		}
	}
	if dead < 0 {
		t.Fatal("no agent died in 50 episodes")
	}

	before := nav.Positions()[dead]
	actions := make([][]float64, 4)
	for i := range actions {
		actions[i] = []float64{float64(navigation.Up)}
	}
	_, _, _, info, err := d.Step(actions)
	if err != nil {
		t.Fatal(err)
	}

	if after := nav.Positions()[dead]; after != before {
		t.Errorf("dead agent position \n\twant(%v) \n\thave(%v)", before,
			after)
	}
	if info.Alive(dead) {
		t.Errorf("step info for dead agent \n\twant(%v) \n\thave(%v)", false,
			true)
	}
}

func TestNewAgentDropoutInvalid(t *testing.T) {
	nav, err := navigation.New(navigation.Config{Agents: 3}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []float64{-0.1, 1} {
		if _, err := NewAgentDropout(nav, p, 1); err == nil {
			t.Errorf("probability %v \n\twant(error) \n\thave(%v)", p, err)
		}
	}

	single, err := navigation.New(navigation.Config{Agents: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAgentDropout(single, 0.1, 1); err == nil {
		t.Errorf("single agent \n\twant(error) \n\thave(%v)", err)
	}
}
