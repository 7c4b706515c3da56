// Package unit compiles the declarative service model into unit file text.
// A service compiles to one service unit, a timer unit per schedule kind,
// and a companion stop unit when a stop schedule exists.
package unit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskflows/taskflows/internal/naming"
	"github.com/taskflows/taskflows/internal/schedule"
	"github.com/taskflows/taskflows/internal/service"
)

// File is one rendered unit file, named as it should appear in the unit
// directory.
type File struct {
	Name    string
	Content []byte
}

// Compiler renders services into unit files. The manager mode decides the
// install target and how the companion stop unit invokes systemctl.
type Compiler struct {
	userMode bool
}

// NewCompiler returns a compiler targeting the user or system manager.
func NewCompiler(userMode bool) *Compiler {
	return &Compiler{userMode: userMode}
}

// Compile renders svc into its unit files. Compiling is pure: identical
// input yields byte-identical output, nothing is written, and the manager
// is not touched.
func (c *Compiler) Compile(svc *service.Service) ([]File, error) {
	if svc.Name == "" {
		return nil, errors.New("service has no name")
	}
	if svc.StartCommand == "" {
		return nil, fmt.Errorf("service %s has no start command", svc.Name)
	}

	var files []File
	if len(svc.StartSchedules) > 0 {
		f, err := c.timerFile(svc, svc.StartSchedules, false)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if len(svc.StopSchedules) > 0 {
		f, err := c.timerFile(svc, svc.StopSchedules, true)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	f, err := c.serviceFile(svc)
	if err != nil {
		return nil, err
	}
	files = append(files, f)

	if len(svc.StopSchedules) > 0 {
		f, err := c.stopServiceFile(svc)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// timerFile merges every schedule's directives into one [Timer] block.
func (c *Compiler) timerFile(svc *service.Service, schedules []schedule.Schedule, stop bool) (File, error) {
	timer := NewSet()
	for _, s := range schedules {
		timer.Add(s.Directives()...)
	}

	description := "timer for " + svc.Name
	name := naming.TimerUnit(svc.Name)
	if stop {
		description = "stop timer for " + svc.Name
		name = naming.StopTimerUnit(svc.Name)
	}

	content, err := render([]section{
		{sectionUnit, NewSet("Description=" + description)},
		{sectionTimer, timer},
		{sectionInstall, NewSet("WantedBy=timers.target")},
	})
	if err != nil {
		return File{}, fmt.Errorf("timer unit %s: %w", name, err)
	}
	return File{Name: name, Content: content}, nil
}

func (c *Compiler) serviceFile(svc *service.Service) (File, error) {
	srv := NewSet(
		"ExecStart="+svc.StartCommand,
		"KillSignal="+killSignal(svc),
	)
	if svc.NonBlocking {
		// The start command only signals an already-backgrounded
		// process, so its exit does not mean the service stopped.
		srv.Add("RemainAfterExit=yes")
	}
	if svc.StopCommand != "" {
		srv.Add("ExecStop=" + svc.StopCommand)
	}
	if svc.WorkingDirectory != "" {
		srv.Add("WorkingDirectory=" + svc.WorkingDirectory)
	}
	if svc.RestartPolicy != "" {
		srv.Add("Restart=" + string(svc.RestartPolicy))
	}
	if svc.TimeoutSec > 0 {
		srv.Add(fmt.Sprintf("RuntimeMaxSec=%d", svc.TimeoutSec))
	}
	if svc.EnvFile != "" {
		srv.Add("EnvironmentFile=" + svc.EnvFile)
	}
	for key, value := range svc.Env {
		srv.Add(envDirective(key, value))
	}

	unitSection := NewSet()
	if svc.Description != "" {
		unitSection.Add("Description=" + svc.Description)
	}
	addRelation(unitSection, "After", svc.StartAfter)
	addRelation(unitSection, "Before", svc.StartBefore)
	addRelation(unitSection, "Wants", svc.Wants)
	addRelation(unitSection, "Upholds", svc.Upholds)
	addRelation(unitSection, "Requires", svc.Requires)
	addRelation(unitSection, "Requisite", svc.Requisite)
	addRelation(unitSection, "BindsTo", svc.BindsTo)
	addRelation(unitSection, "OnFailure", svc.OnFailure)
	addRelation(unitSection, "OnSuccess", svc.OnSuccess)
	addRelation(unitSection, "PartOf", svc.PartOf)
	addRelation(unitSection, "PropagatesStopTo", svc.PropagateStopTo)
	addRelation(unitSection, "StopPropagatedFrom", svc.PropagateStopFrom)
	addRelation(unitSection, "Conflicts", svc.Conflicts)
	for _, hc := range svc.HardwareConstraints {
		unitSection.Add(hc.Directives()...)
	}
	for _, slc := range svc.SystemLoadConstraints {
		unitSection.Add(slc.Directives()...)
	}

	name := naming.ServiceUnit(svc.Name)
	content, err := render([]section{
		{sectionUnit, unitSection},
		{sectionService, srv},
		{sectionInstall, NewSet("WantedBy=" + c.installTarget())},
	})
	if err != nil {
		return File{}, fmt.Errorf("service unit %s: %w", name, err)
	}
	return File{Name: name, Content: content}, nil
}

// stopServiceFile synthesizes the unit the stop timer activates. It stops
// the primary service through the manager instead of running the service's
// own stop command, so the stop schedule can be enabled and disabled
// without touching the service definition.
func (c *Compiler) stopServiceFile(svc *service.Service) (File, error) {
	systemctl := "systemctl"
	if c.userMode {
		systemctl = "systemctl --user"
	}
	name := naming.StopServiceUnit(svc.Name)
	content, err := render([]section{
		{sectionService, NewSet(fmt.Sprintf("ExecStart=%s stop %s", systemctl, naming.ServiceUnit(svc.Name)))},
		{sectionInstall, NewSet("WantedBy=" + c.installTarget())},
	})
	if err != nil {
		return File{}, fmt.Errorf("stop unit %s: %w", name, err)
	}
	return File{Name: name, Content: content}, nil
}

func (c *Compiler) installTarget() string {
	if c.userMode {
		return "default.target"
	}
	return "multi-user.target"
}

func killSignal(svc *service.Service) string {
	if svc.KillSignal == "" {
		return service.DefaultKillSignal
	}
	return svc.KillSignal
}

func addRelation(s Set, directive string, refs service.UnitRefs) {
	if len(refs) == 0 {
		return
	}
	s.Add(directive + "=" + refs.Join())
}

// envDirective renders one Environment assignment, quoting it when the
// value contains whitespace.
func envDirective(key, value string) string {
	assignment := key + "=" + value
	if strings.ContainsAny(assignment, " \t") {
		return `Environment="` + strings.ReplaceAll(assignment, `"`, `\"`) + `"`
	}
	return "Environment=" + assignment
}
