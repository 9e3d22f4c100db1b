package drive

// EmergencyStop is a level-triggered latch: engaged exactly while the button
// is held, with no cooldown after release.
type EmergencyStop struct {
	engaged bool
}

// Update records the current button reading. changed is true on the tick the
// latch engages or releases.
func (e *EmergencyStop) Update(pressed bool) (engaged, changed bool) {
	changed = pressed != e.engaged
	e.engaged = pressed
	return pressed, changed
}

func (e *EmergencyStop) Engaged() bool {
	return e.engaged
}
