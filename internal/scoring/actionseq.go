package scoring

import (
	"errors"
	"math"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

// Object is one of the two movable items of the action-sequence game.
type Object string

const (
	Pencil Object = "pencil"
	Paper  Object = "paper"
)

var (
	ErrNoSteps       = errors.New("action sequence has no steps")
	ErrInvalidCanvas = errors.New("canvas dimensions must be positive")
	ErrGameFinished  = errors.New("action sequence already finished")
	ErrUnknownObject = errors.New("unknown object")
)

// Layout constants, as fractions of the canvas.
const (
	pencilWidthRatio  = 0.23
	pencilAspect      = 0.52
	paperWidthRatio   = 0.36
	paperAspect       = 1.2
	boxHeightRatio    = 0.28
	pencilStartX      = 0.15
	pencilStartY      = 0.30
	paperStartX       = 0.55
	paperStartY       = 0.25
	inBoxAreaFraction = 0.90
)

// Rect is an axis-aligned rectangle in canvas coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Area() float64   { return r.Width * r.Height }

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return r.Left <= o.Left && r.Top <= o.Top && r.Right() >= o.Right() && r.Bottom() >= o.Bottom()
}

// Overlap returns the area shared by r and o.
func (r Rect) Overlap(o Rect) float64 {
	w := math.Min(r.Right(), o.Right()) - math.Max(r.Left, o.Left)
	h := math.Min(r.Bottom(), o.Bottom()) - math.Max(r.Top, o.Top)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// ActionGame is the multi-step pencil and paper exercise. Step 0 is practice: the player must
// tap the pencil and then the paper. Every later step is judged on where the objects are when
// Done is pressed. The game is not safe for concurrent use.
type ActionGame struct {
	steps  []models.ActionStep
	width  float64
	height float64

	index        int
	score        int
	finished     bool
	taps         []Object
	touchedPaper bool

	pencil Rect
	paper  Rect
	box    Rect
}

// NewActionGame starts a game on a width x height canvas.
func NewActionGame(steps []models.ActionStep, width, height float64) (*ActionGame, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidCanvas
	}

	pencilW := width * pencilWidthRatio
	paperW := width * paperWidthRatio
	boxH := height * boxHeightRatio

	g := &ActionGame{
		steps:  steps,
		width:  width,
		height: height,
		pencil: Rect{Width: pencilW, Height: pencilW * pencilAspect},
		paper:  Rect{Width: paperW, Height: paperW * paperAspect},
		box:    Rect{Left: 0, Top: height - boxH, Width: width, Height: boxH},
	}
	g.Reset()
	return g, nil
}

// Reset puts both objects back at their starting offsets and forgets the taps and the
// paper touch of the current step.
func (g *ActionGame) Reset() {
	g.pencil.Left, g.pencil.Top = g.bound(g.pencil, g.width*pencilStartX, g.height*pencilStartY)
	g.paper.Left, g.paper.Top = g.bound(g.paper, g.width*paperStartX, g.height*paperStartY)
	g.taps = g.taps[:0]
	g.touchedPaper = false
}

// Tap records a tap on an object. Only the first two taps of the practice step count. Tapping
// the paper during a step that requires prior contact marks it touched.
func (g *ActionGame) Tap(obj Object) error {
	if err := g.check(obj); err != nil {
		return err
	}

	if g.index == 0 && len(g.taps) < 2 {
		g.taps = append(g.taps, obj)
	}
	if obj == Paper && g.requires(models.ActionPickPencilAfterTouch) {
		g.touchedPaper = true
	}
	return nil
}

// Drag moves an object by (dx, dy), keeping it inside the canvas.
func (g *ActionGame) Drag(obj Object, dx, dy float64) error {
	if err := g.check(obj); err != nil {
		return err
	}

	r := g.rect(obj)
	r.Left, r.Top = g.bound(*r, r.Left+dx, r.Top+dy)
	return nil
}

// Done judges the current step. It returns finished once the game is over, with the final
// score: 0 after a failed practice step, otherwise one point per passed step after practice.
// A failed later step also ends the game.
func (g *ActionGame) Done() (finished bool, score int, err error) {
	if g.finished {
		return true, g.score, ErrGameFinished
	}

	passed := g.evaluate(g.steps[g.index])

	switch {
	case g.index == 0 && !passed:
		g.score = 0
		g.finished = true
	case g.index > 0 && !passed:
		g.finished = true
	case g.index > 0:
		g.score++
	}

	if !g.finished && g.index >= len(g.steps)-1 {
		g.finished = true
	}
	if g.finished {
		return true, g.score, nil
	}

	g.index++
	g.Reset()
	return false, g.score, nil
}

func (g *ActionGame) Step() int           { return g.index }
func (g *ActionGame) StepCount() int      { return len(g.steps) }
func (g *ActionGame) Score() int          { return g.score }
func (g *ActionGame) Finished() bool      { return g.finished }
func (g *ActionGame) Box() Rect           { return g.box }
func (g *ActionGame) Instruction() string { return g.steps[g.index].Command }

// Position returns the current bounds of an object.
func (g *ActionGame) Position(obj Object) Rect {
	if r := g.rect(obj); r != nil {
		return *r
	}
	return Rect{}
}

func (g *ActionGame) evaluate(step models.ActionStep) bool {
	for _, tag := range step.RequiredActions {
		if !g.satisfies(tag) {
			return false
		}
	}
	return true
}

func (g *ActionGame) satisfies(tag string) bool {
	switch tag {
	case models.ActionPickPencil:
		return g.index == 0 && len(g.taps) >= 1 && g.taps[0] == Pencil
	case models.ActionPickPaper:
		return g.index == 0 && len(g.taps) == 2 && g.taps[1] == Paper
	case models.ActionPlacePaperOnPencil:
		return g.paper.Contains(g.pencil)
	case models.ActionPickPencilOnly:
		return g.pencilInBox() && g.paper.Overlap(g.box) == 0
	case models.ActionPickPencilAfterTouch:
		return g.touchedPaper && g.pencilInBox()
	default:
		return false
	}
}

func (g *ActionGame) pencilInBox() bool {
	return g.pencil.Overlap(g.box) >= inBoxAreaFraction*g.pencil.Area()
}

func (g *ActionGame) requires(tag string) bool {
	for _, t := range g.steps[g.index].RequiredActions {
		if t == tag {
			return true
		}
	}
	return false
}

func (g *ActionGame) check(obj Object) error {
	if g.finished {
		return ErrGameFinished
	}
	if g.rect(obj) == nil {
		return ErrUnknownObject
	}
	return nil
}

func (g *ActionGame) rect(obj Object) *Rect {
	switch obj {
	case Pencil:
		return &g.pencil
	case Paper:
		return &g.paper
	default:
		return nil
	}
}

func (g *ActionGame) bound(r Rect, left, top float64) (float64, float64) {
	return clampFloat(left, 0, g.width-r.Width), clampFloat(top, 0, g.height-r.Height)
}

func clampFloat(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}
