package session

import (
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
)

// GameState is the visible state of the action-sequence mini-game.
type GameState struct {
	Step        int          `json:"step"`
	StepCount   int          `json:"step_count"`
	Instruction string       `json:"instruction"`
	Score       int          `json:"score"`
	Finished    bool         `json:"finished"`
	Pencil      scoring.Rect `json:"pencil"`
	Paper       scoring.Rect `json:"paper"`
	Box         scoring.Rect `json:"box"`
}

func stateOf(g *scoring.ActionGame) GameState {
	st := GameState{
		Step:      g.Step(),
		StepCount: g.StepCount(),
		Score:     g.Score(),
		Finished:  g.Finished(),
		Pencil:    g.Position(scoring.Pencil),
		Paper:     g.Position(scoring.Paper),
		Box:       g.Box(),
	}
	if !st.Finished {
		st.Instruction = g.Instruction()
	}
	return st
}

// StartActionGame begins the mini-game of the current ActionSequence question on a canvas
// of the given size, replacing any game in progress.
func (s *Session) StartActionGame(width, height float64) (GameState, error) {
	q, err := s.current(models.ActionSequence)
	if err != nil {
		return GameState{}, err
	}
	g, err := scoring.NewActionGame(q.Steps, width, height)
	if err != nil {
		return GameState{}, err
	}

	s.mu.Lock()
	s.game = g
	s.mu.Unlock()
	return stateOf(g), nil
}

func (s *Session) ActionTap(obj scoring.Object) (GameState, error) {
	return s.withGame(func(g *scoring.ActionGame) error { return g.Tap(obj) })
}

func (s *Session) ActionDrag(obj scoring.Object, dx, dy float64) (GameState, error) {
	return s.withGame(func(g *scoring.ActionGame) error { return g.Drag(obj, dx, dy) })
}

func (s *Session) ActionReset() (GameState, error) {
	return s.withGame(func(g *scoring.ActionGame) error {
		g.Reset()
		return nil
	})
}

// ActionDone judges the current step. When the game finishes its score is stored through
// CompleteActionSequence, which also advances the session.
func (s *Session) ActionDone() (GameState, error) {
	var finished bool
	var score int
	st, err := s.withGame(func(g *scoring.ActionGame) error {
		var err error
		finished, score, err = g.Done()
		return err
	})
	if err != nil || !finished {
		return st, err
	}

	if _, err := s.CompleteActionSequence(score); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Session) withGame(fn func(g *scoring.ActionGame) error) (GameState, error) {
	if _, err := s.current(models.ActionSequence); err != nil {
		return GameState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game == nil {
		return GameState{}, ErrNoActionGame
	}
	if err := fn(s.game); err != nil {
		return stateOf(s.game), err
	}
	return stateOf(s.game), nil
}
