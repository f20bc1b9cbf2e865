package portals

import (
	"fmt"
	"slices"
)

type Stage struct {
	Name string
}

var (
	Prelude    = Stage{Name: "Prelude"}
	PreUpdate  = Stage{Name: "PreUpdate"}
	Update     = Stage{Name: "Update"}
	PostUpdate = Stage{Name: "PostUpdate"}
	// Extract copies main-world state into the RenderWorld.
	Extract = Stage{Name: "Extract"}
	// Prepare materializes GPU resources (images, depth textures).
	Prepare = Stage{Name: "Prepare"}
	// Queue fills render phases with draw items.
	Queue      = Stage{Name: "Queue"}
	Render     = Stage{Name: "Render"}
	PostRender = Stage{Name: "PostRender"}
	Finale     = Stage{Name: "Finale"}
)

var defaultStages = []Stage{Prelude, PreUpdate, Update, PostUpdate, Extract, Prepare, Queue, Render, PostRender, Finale}

// SystemLabel names a system so others in the same stage can order against it.
type SystemLabel string

type scheduledSystem struct {
	fn     systemFn
	label  SystemLabel
	before []SystemLabel
	after  []SystemLabel
}

type systemScheduleBuilder struct {
	inStage Stage
	system  scheduledSystem
}

func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{
		inStage: Update,
		system:  scheduledSystem{fn: system},
	}
}

func (sched systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	sched.inStage = s
	return sched
}

func (sched systemScheduleBuilder) Label(label SystemLabel) systemScheduleBuilder {
	sched.system.label = label
	return sched
}

func (sched systemScheduleBuilder) Before(label SystemLabel) systemScheduleBuilder {
	sched.system.before = append(slices.Clone(sched.system.before), label)
	return sched
}

func (sched systemScheduleBuilder) After(label SystemLabel) systemScheduleBuilder {
	sched.system.after = append(slices.Clone(sched.system.after), label)
	return sched
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
	return stagePositionBuilder{position: stageBefore, target: s}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageAfter, target: s}
}

func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	stageIdx := slices.IndexFunc(app.stages, func(s Stage) bool { return s.Name == where.target.Name })
	if stageIdx == -1 {
		panic(fmt.Sprintf("Stage %v not found", where.target.Name))
	}
	if _, ok := app.systems[stage.Name]; ok {
		panic(fmt.Sprintf("Stage %v already exists", stage.Name))
	}

	insertAt := stageIdx
	if where.position == stageAfter {
		insertAt = stageIdx + 1
	}

	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.systems[stage.Name] = nil
	return app
}

func (app *App) UseSystem(system systemScheduleBuilder) *App {
	systems, ok := app.systems[system.inStage.Name]
	if !ok {
		panic(fmt.Sprintf("Stage %v doesn't exist", system.inStage.Name))
	}
	app.systems[system.inStage.Name] = append(systems, system.system)
	app.sorted = false
	return app
}

// sortSystems orders each stage so Before/After constraints hold, keeping
// registration order wherever the constraints leave a choice.
func (app *App) sortSystems() {
	if app.sorted {
		return
	}
	for _, stage := range app.stages {
		app.systems[stage.Name] = sortStageSystems(stage.Name, app.systems[stage.Name])
	}
	app.sorted = true
}

func sortStageSystems(stage string, systems []scheduledSystem) []scheduledSystem {
	byLabel := make(map[SystemLabel]int)
	for i, s := range systems {
		if s.label == "" {
			continue
		}
		if _, dup := byLabel[s.label]; dup {
			panic(fmt.Sprintf("system label %q used twice in stage %s", s.label, stage))
		}
		byLabel[s.label] = i
	}

	lookup := func(label SystemLabel) int {
		i, ok := byLabel[label]
		if !ok {
			panic(fmt.Sprintf("system label %q not found in stage %s", label, stage))
		}
		return i
	}

	indegree := make([]int, len(systems))
	edges := make([][]int, len(systems))
	for i, s := range systems {
		for _, l := range s.after {
			j := lookup(l)
			edges[j] = append(edges[j], i)
			indegree[i]++
		}
		for _, l := range s.before {
			j := lookup(l)
			edges[i] = append(edges[i], j)
			indegree[j]++
		}
	}

	res := make([]scheduledSystem, 0, len(systems))
	done := make([]bool, len(systems))
	for len(res) < len(systems) {
		next := -1
		for i := range systems {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			panic(fmt.Sprintf("system ordering cycle in stage %s", stage))
		}
		done[next] = true
		res = append(res, systems[next])
		for _, j := range edges[next] {
			indegree[j]--
		}
	}
	return res
}
