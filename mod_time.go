package applier

import (
	"time"
)

// Time is the per-frame clock resource. Dt is the wall time of the previous
// frame; Frame counts completed frames since startup.
type Time struct {
	Time  time.Time
	Dt    time.Duration
	Frame uint64
}

type TimeModule struct {
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time: time.Now(),
	})
	cmd.UseSystem(
		System(timeSystem).
			InStage(Prelude),
	)
}

func timeSystem(clock *Time) {
	now := time.Now()
	clock.Dt = now.Sub(clock.Time)
	clock.Time = now
	clock.Frame++
}
