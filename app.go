package portals

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

type systemFn any

// Module bundles resources and systems. Install is called once while the app is built.
type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	stages    []Stage
	systems   map[string][]scheduledSystem
	sorted    bool
	resources map[reflect.Type]any
	ecs       *Ecs
	frame     uint64
	exit      bool

	// Command Buffering
	pendingAdditions    []pendingAdd
	pendingRemovals     []EntityId
	pendingCompAdds     []pendingComponents
	pendingCompRemovals []pendingComponents
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingComponents struct {
	eid        EntityId
	components []any
}

// NewApp returns an app with the default stages and an empty world.
func NewApp() *App {
	ecs := MakeEcs()
	app := &App{
		systems:   make(map[string][]scheduledSystem),
		resources: make(map[reflect.Type]any),
		ecs:       &ecs,
	}
	for _, stage := range defaultStages {
		app.stages = append(app.stages, stage)
		app.systems[stage.Name] = nil
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		module.Install(app, cmd)
	}
	return app
}

// Frame is the number of frames completed so far.
func (app *App) Frame() uint64 {
	return app.frame
}

// Run updates the app until a system calls Commands.Exit.
func (app *App) Run() {
	app.Logger().Infof("Running with %d stages", len(app.stages))
	for !app.exit {
		app.Update()
	}
	app.Logger().Infof("Exit requested after %d frames", app.frame)
}

// Update runs every stage once. A system returning a non-nil error drops the
// rest of the frame; pending commands are still flushed.
func (app *App) Update() {
	app.sortSystems()

	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			if err := app.callSystem(system.fn); err != nil {
				app.Logger().Errorf("frame %d dropped in stage %s by %s: %v", app.frame, stage.Name, systemName(system.fn), err)
				app.FlushCommands()
				app.frame++
				return
			}
		}
		app.FlushCommands()
	}
	app.frame++
}

func (app *App) requestExit() {
	app.exit = true
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType == nil || resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource must be a pointer, got %T", resource))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type T if it was added.
func Resource[T any](app *App) (*T, bool) {
	res, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return res.(*T), true
}

var (
	typeOfCommands = reflect.TypeFor[Commands]()
	typeOfLogger   = reflect.TypeFor[Logger]()
	typeOfError    = reflect.TypeFor[error]()
)

// callSystem resolves the system's parameters by type: *Commands, the Logger,
// or a pointer to a resource. Unresolvable parameters are a wiring bug and panic.
func (app *App) callSystem(system systemFn) error {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := range args {
		argType := systemType.In(i)

		switch {
		case argType == typeOfLogger:
			args[i] = reflect.ValueOf(app.Logger())
		case argType.Kind() == reflect.Pointer && argType.Elem() == typeOfCommands:
			args[i] = reflect.ValueOf(&Commands{app: app})
		case argType.Kind() == reflect.Pointer:
			resource, ok := app.resources[argType.Elem()]
			if !ok {
				panic(unresolvedDependency(systemValue, systemType, argType))
			}
			args[i] = reflect.ValueOf(resource)
		default:
			panic(unresolvedDependency(systemValue, systemType, argType))
		}
	}

	out := systemValue.Call(args)
	if len(out) == 1 && out[0].Type() == typeOfError && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

func unresolvedDependency(systemValue reflect.Value, systemType, argType reflect.Type) string {
	return fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		systemType,
		argType,
	)
}

func systemName(system systemFn) string {
	name := runtime.FuncForPC(reflect.ValueOf(system).Pointer()).Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 &&
		len(app.pendingCompAdds) == 0 && len(app.pendingCompRemovals) == 0 {
		return
	}

	// Removals first so we don't add to dead entities
	for _, eid := range app.pendingRemovals {
		app.ecs.removeEntity(eid)
	}
	app.pendingRemovals = app.pendingRemovals[:0]

	for _, add := range app.pendingAdditions {
		app.ecs.insertEntity(add.eid, add.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	for _, add := range app.pendingCompAdds {
		if !app.ecs.hasEntity(add.eid) {
			app.Logger().Warnf("dropping components for missing entity %d", add.eid)
			continue
		}
		app.ecs.addComponents(add.eid, add.components...)
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	for _, rm := range app.pendingCompRemovals {
		app.ecs.removeComponents(rm.eid, rm.components...)
	}
	app.pendingCompRemovals = app.pendingCompRemovals[:0]
}
