package applier

import (
	"fmt"
	"slices"
)

// Stage is a named slot in the per-frame schedule. The default stages model
// one frame of the render lifecycle: simulation first, then the extraction
// synchronization point, then the render-side prepare and draw phases.
type Stage struct {
	Name string
}

var (
	Prelude           = Stage{Name: "Prelude"}
	Update            = Stage{Name: "Update"}
	Extract           = Stage{Name: "Extract"}
	PrepareResources  = Stage{Name: "PrepareResources"}
	PrepareBindGroups = Stage{Name: "PrepareBindGroups"}
	Render            = Stage{Name: "Render"}
	Finale            = Stage{Name: "Finale"}
)

func defaultStages() []Stage {
	return []Stage{Prelude, Update, Extract, PrepareResources, PrepareBindGroups, Render, Finale}
}

type systemScheduleBuilder struct {
	inStage Stage
	system  systemFn
}

func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{
		system:  system,
		inStage: Update,
	}
}

func (sched systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	return systemScheduleBuilder{
		system:  sched.system,
		inStage: s,
	}
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{
		position: stageBefore,
		target:   s,
	}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{
		position: stageAfter,
		target:   s,
	}
}

// UseStage inserts a custom stage relative to an existing one.
func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	var stageIdx int = -1
	for i, s := range app.stages {
		if s.Name == where.target.Name {
			stageIdx = i
			break
		}
	}
	if -1 == stageIdx {
		panic(fmt.Sprintf("Stage %v not found", where.target.Name))
	}

	var insertAt int
	if stageBefore == where.position {
		insertAt = stageIdx
	} else {
		insertAt = stageIdx + 1
	}

	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.systems[stage.Name] = make([]systemFn, 0)

	return app
}

// UseSystem appends a system to its stage. Systems in the same stage run in
// registration order.
func (app *App) UseSystem(system systemScheduleBuilder) *App {
	if _, ok := app.systems[system.inStage.Name]; !ok {
		panic(fmt.Sprintf("Stage %v doesn't exist", system.inStage.Name))
	}
	app.systems[system.inStage.Name] = append(app.systems[system.inStage.Name], system.system)
	return app
}
