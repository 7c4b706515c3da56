// Package manifest loads service definitions from YAML files. A manifest
// maps service names to definitions:
//
//	nightly-export:
//	  description: Nightly data export
//	  command: /usr/bin/export --all
//	  schedules:
//	    - calendar: "*-*-* 03:00:00"
//	  after: [db]
//
// Unknown fields are rejected so typos surface as load errors instead of
// silently dropped configuration.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/taskflows/taskflows/internal/config"
	"github.com/taskflows/taskflows/internal/constraint"
	"github.com/taskflows/taskflows/internal/naming"
	"github.com/taskflows/taskflows/internal/schedule"
	"github.com/taskflows/taskflows/internal/service"
)

type serviceSpec struct {
	Description      string            `yaml:"description"`
	Command          string            `yaml:"command"`
	StopCommand      string            `yaml:"stop-command"`
	NonBlocking      *bool             `yaml:"non-blocking"`
	KillSignal       string            `yaml:"kill-signal"`
	RestartPolicy    string            `yaml:"restart-policy"`
	TimeoutSec       int               `yaml:"timeout-sec"`
	WorkingDirectory string            `yaml:"working-directory"`
	EnvFile          string            `yaml:"env-file"`
	Env              map[string]string `yaml:"env"`
	Container        *containerSpec    `yaml:"container"`
	Schedules        []scheduleSpec    `yaml:"schedules"`
	StopSchedules    []scheduleSpec    `yaml:"stop-schedules"`
	Constraints      *constraintSpec   `yaml:"constraints"`

	After             []string `yaml:"after"`
	Before            []string `yaml:"before"`
	Wants             []string `yaml:"wants"`
	Upholds           []string `yaml:"upholds"`
	Requires          []string `yaml:"requires"`
	Requisite         []string `yaml:"requisite"`
	BindsTo           []string `yaml:"binds-to"`
	OnFailure         []string `yaml:"on-failure"`
	OnSuccess         []string `yaml:"on-success"`
	PartOf            []string `yaml:"part-of"`
	PropagateStopTo   []string `yaml:"propagate-stop-to"`
	PropagateStopFrom []string `yaml:"propagate-stop-from"`
	Conflicts         []string `yaml:"conflicts"`
}

type containerSpec struct {
	Engine string `yaml:"engine"`
	Name   string `yaml:"name"`
}

type scheduleSpec struct {
	Calendar   string `yaml:"calendar"`
	Persistent *bool  `yaml:"persistent"`
	StartOn    string `yaml:"start-on"`
	PeriodSec  int    `yaml:"period-sec"`
	RelativeTo string `yaml:"relative-to"`
}

type constraintSpec struct {
	CPUs           *cpusSpec     `yaml:"cpus"`
	Memory         *memorySpec   `yaml:"memory"`
	CPUPressure    *pressureSpec `yaml:"cpu-pressure"`
	MemoryPressure *pressureSpec `yaml:"memory-pressure"`
	IOPressure     *pressureSpec `yaml:"io-pressure"`
}

type cpusSpec struct {
	Count   int    `yaml:"count"`
	Compare string `yaml:"compare"`
}

type memorySpec struct {
	Bytes   uint64 `yaml:"bytes"`
	Compare string `yaml:"compare"`
}

type pressureSpec struct {
	MaxPercent  int `yaml:"max-percent"`
	TimespanSec int `yaml:"timespan-sec"`
}

var titleCaser = cases.Title(language.English)

// Parse decodes one manifest document into services, sorted by name.
func Parse(r io.Reader) ([]*service.Service, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	specs := make(map[string]serviceSpec)
	if err := dec.Decode(&specs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make([]*service.Service, 0, len(specs))
	for _, name := range names {
		svc, err := buildService(name, specs[name])
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		services = append(services, svc)
	}
	return services, nil
}

// LoadFile parses one manifest file.
func LoadFile(path string) ([]*service.Service, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Manifest paths come from configuration
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	services, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return services, nil
}

// LoadDir parses every .yaml and .yml file directly under dir, in file name
// order. A service name defined in two files is an error.
func LoadDir(dir string) ([]*service.Service, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory %s: %w", dir, err)
	}

	var services []*service.Service
	definedIn := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, svc := range loaded {
			if prev, ok := definedIn[svc.Name]; ok {
				return nil, fmt.Errorf("service %s defined in both %s and %s", svc.Name, prev, path)
			}
			definedIn[svc.Name] = path
			services = append(services, svc)
		}
	}
	return services, nil
}

func buildService(name string, spec serviceSpec) (*service.Service, error) {
	var svc *service.Service
	switch {
	case spec.Container != nil && spec.Command != "":
		return nil, errors.New("command and container are mutually exclusive")
	case spec.Container != nil:
		engine := spec.Container.Engine
		if engine == "" {
			engine = config.DefaultContainerEngine
		}
		var err error
		svc, err = service.NewContainerService(engine, name, spec.Container.Name)
		if err != nil {
			return nil, err
		}
	default:
		svc = service.New(name, spec.Command)
	}

	svc.Description = spec.Description
	if svc.Description == "" {
		svc.Description = titleCaser.String(name)
	}
	if spec.StopCommand != "" {
		svc.StopCommand = spec.StopCommand
	}
	if spec.NonBlocking != nil {
		svc.NonBlocking = *spec.NonBlocking
	}
	if spec.KillSignal != "" {
		svc.KillSignal = spec.KillSignal
	}
	svc.RestartPolicy = service.RestartPolicy(spec.RestartPolicy)
	svc.TimeoutSec = spec.TimeoutSec
	svc.WorkingDirectory = spec.WorkingDirectory
	svc.EnvFile = spec.EnvFile
	svc.Env = spec.Env

	var err error
	if svc.StartSchedules, err = buildSchedules(spec.Schedules); err != nil {
		return nil, fmt.Errorf("schedules: %w", err)
	}
	if svc.StopSchedules, err = buildSchedules(spec.StopSchedules); err != nil {
		return nil, fmt.Errorf("stop-schedules: %w", err)
	}

	if spec.Constraints != nil {
		svc.HardwareConstraints, svc.SystemLoadConstraints = buildConstraints(spec.Constraints)
	}

	svc.StartAfter = resolveRefs(spec.After)
	svc.StartBefore = resolveRefs(spec.Before)
	svc.Wants = resolveRefs(spec.Wants)
	svc.Upholds = resolveRefs(spec.Upholds)
	svc.Requires = resolveRefs(spec.Requires)
	svc.Requisite = resolveRefs(spec.Requisite)
	svc.BindsTo = resolveRefs(spec.BindsTo)
	svc.OnFailure = resolveRefs(spec.OnFailure)
	svc.OnSuccess = resolveRefs(spec.OnSuccess)
	svc.PartOf = resolveRefs(spec.PartOf)
	svc.PropagateStopTo = resolveRefs(spec.PropagateStopTo)
	svc.PropagateStopFrom = resolveRefs(spec.PropagateStopFrom)
	svc.Conflicts = resolveRefs(spec.Conflicts)

	if err := svc.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

func buildSchedules(specs []scheduleSpec) ([]schedule.Schedule, error) {
	var schedules []schedule.Schedule
	for i, s := range specs {
		built, err := buildSchedule(s)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i+1, err)
		}
		schedules = append(schedules, built)
	}
	return schedules, nil
}

func buildSchedule(s scheduleSpec) (schedule.Schedule, error) {
	switch {
	case s.Calendar != "" && s.StartOn != "":
		return nil, errors.New("calendar and start-on are mutually exclusive")
	case s.Calendar != "":
		cal := schedule.NewCalendar(s.Calendar)
		if s.Persistent != nil {
			cal.Persistent = *s.Persistent
		}
		return cal, nil
	case s.StartOn != "":
		return schedule.NewPeriodic(schedule.StartOn(s.StartOn), s.PeriodSec, schedule.RelativeTo(s.RelativeTo))
	default:
		return nil, errors.New("needs a calendar expression or a start-on event")
	}
}

func buildConstraints(spec *constraintSpec) (hardware, load []constraint.Constraint) {
	if spec.CPUs != nil {
		hardware = append(hardware, constraint.CPUs{
			Count:   spec.CPUs.Count,
			Compare: constraint.Compare(spec.CPUs.Compare),
		})
	}
	if spec.Memory != nil {
		hardware = append(hardware, constraint.Memory{
			Bytes:   spec.Memory.Bytes,
			Compare: constraint.Compare(spec.Memory.Compare),
		})
	}
	if spec.CPUPressure != nil {
		load = append(load, constraint.CPUPressure{
			MaxPercent:  spec.CPUPressure.MaxPercent,
			TimespanSec: spec.CPUPressure.TimespanSec,
		})
	}
	if spec.MemoryPressure != nil {
		load = append(load, constraint.MemoryPressure{
			MaxPercent:  spec.MemoryPressure.MaxPercent,
			TimespanSec: spec.MemoryPressure.TimespanSec,
		})
	}
	if spec.IOPressure != nil {
		load = append(load, constraint.IOPressure{
			MaxPercent:  spec.IOPressure.MaxPercent,
			TimespanSec: spec.IOPressure.TimespanSec,
		})
	}
	return hardware, load
}

// unitSuffixes are the unit types a reference can name literally. Anything
// else is treated as the name of another taskflows service.
var unitSuffixes = []string{
	".service", ".timer", ".target", ".socket", ".mount", ".path",
	".slice", ".scope", ".device", ".swap",
}

func resolveRefs(names []string) service.UnitRefs {
	if len(names) == 0 {
		return nil
	}
	refs := make(service.UnitRefs, len(names))
	for i, name := range names {
		refs[i] = resolveRef(name)
	}
	return refs
}

func resolveRef(name string) service.UnitRef {
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(name, suffix) {
			return service.Ref(name)
		}
	}
	return service.Ref(naming.ServiceUnit(name))
}
