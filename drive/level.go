package drive

// DefaultLevels is the speed ladder in percent of full actuation.
var DefaultLevels = []int{50, 75, 100}

// SpeedLevels tracks the operator-selected speed ceiling. It only moves on a
// change of the raw dpad reading, so holding a direction steps once.
type SpeedLevels struct {
	ladder []int
	index  int
	last   Hat
}

// NewSpeedLevels starts at index initial, or at the top of the ladder when
// initial is out of range. An empty ladder falls back to DefaultLevels.
func NewSpeedLevels(ladder []int, initial int) *SpeedLevels {
	if len(ladder) == 0 {
		ladder = DefaultLevels
	}

	l := &SpeedLevels{
		ladder: append([]int(nil), ladder...),
		index:  initial,
	}
	if initial < 0 || initial >= len(l.ladder) {
		l.index = len(l.ladder) - 1
	}
	return l
}

func (l *SpeedLevels) Level() int {
	return l.ladder[l.index]
}

func (l *SpeedLevels) Index() int {
	return l.index
}

// Up moves one step up the ladder, reporting whether the level changed.
func (l *SpeedLevels) Up() bool {
	if l.index >= len(l.ladder)-1 {
		return false
	}
	l.index++
	return true
}

// Down moves one step down the ladder, reporting whether the level changed.
func (l *SpeedLevels) Down() bool {
	if l.index <= 0 {
		return false
	}
	l.index--
	return true
}

// Observe feeds the raw dpad of the current tick.
func (l *SpeedLevels) Observe(dpad Hat) (changed bool) {
	if dpad == l.last {
		return false
	}
	l.last = dpad

	switch dpad.Y {
	case 1:
		return l.Up()
	case -1:
		return l.Down()
	}
	return false
}
