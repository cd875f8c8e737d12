package applier

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

// App owns the resource map and the staged per-frame schedule.
// Resources are singletons keyed by their concrete type; systems are plain
// functions whose pointer arguments are resolved from the resource map at
// call time.
type App struct {
	running   bool
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run drives the frame loop until Quit is called. Each frame walks the
// stages in order; Extract must fully finish before PrepareResources starts,
// which the sequential walk guarantees.
func (app *App) Run() {
	app.running = true
	for app.running {
		app.RunFrame()
	}
}

// RunFrame executes a single frame across all stages.
func (app *App) RunFrame() {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
	}
}

func (app *App) quit() {
	app.running = false
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type T, or nil if it was never added.
func Resource[T any](app *App) *T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if r, ok := app.resources[t]; ok {
		return r.(*T)
	}
	return nil
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			panic(msg)
		}
	}
	systemValue.Call(args)
}
