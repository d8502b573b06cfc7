// Package lesson holds the authored step content and the read-only store the rest of the
// program consumes.
package lesson

// Step is one screen of the lesson.
type Step struct {
	ID        int      `yaml:"id"`
	Title     string   `yaml:"title"`
	Narration []string `yaml:"narration"`
	Phases    []Phase  `yaml:"phases"`
	Highlight string   `yaml:"highlight,omitempty"`
	Pose      Pose     `yaml:"pose"`
	Buttons   []Button `yaml:"buttons,omitempty"`
}

// Phase is a tower state that becomes active once its trigger line is revealed.
type Phase struct {
	TriggerLine    int       `yaml:"triggerLine"`
	Sections       []Section `yaml:"sections"`
	StockTotal     float64   `yaml:"stockTotal"`
	DebtTotal      float64   `yaml:"debtTotal"`
	SuspendedLoss  *float64  `yaml:"suspendedLoss,omitempty"`
	CapitalGain    *float64  `yaml:"capitalGain,omitempty"`
	OrdinaryIncome *float64  `yaml:"ordinaryIncome,omitempty"`
	ShowDebtStack  bool      `yaml:"showDebtStack"`
	FlashZero      bool      `yaml:"flashZero"`
	BelowGround    *Block    `yaml:"belowGround,omitempty"`
	Departing      []Block   `yaml:"departing,omitempty"`
}

// Section is one colored block of a tower.
type Section struct {
	ID     string  `yaml:"id"`
	Label  string  `yaml:"label"`
	Amount float64 `yaml:"amount"`
	Color  Color   `yaml:"color"`
	Stack  Stack   `yaml:"stack"`
}

// Block is a labelled amount outside the towers (departing or below ground).
type Block struct {
	Label  string  `yaml:"label"`
	Amount float64 `yaml:"amount"`
}

// Button is an interactive control that nudges a tower total and triggers a spoken reaction.
type Button struct {
	Label    string  `yaml:"label"`
	Delta    float64 `yaml:"delta"`
	Stack    Stack   `yaml:"stack"`
	Color    Color   `yaml:"color"`
	Reaction string  `yaml:"reaction"`
}

// SectionsIn returns the phase's sections on one stack, in authored order.
func (p Phase) SectionsIn(stack Stack) []Section {
	var out []Section
	for _, s := range p.Sections {
		if s.Stack == stack {
			out = append(out, s)
		}
	}
	return out
}

// Value dereferences an optional amount, treating absence as zero.
func Value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
