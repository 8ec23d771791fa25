// Package taxonomy loads the triage taxonomy (levels, statuses and their
// markers) and the scheduled report jobs, and matches messages against it.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Level is an urgency tag attached to a message through a text marker.
type Level string

// Status is a resolution tag attached to a message through a reaction marker.
type Status string

// JobSpec describes one recurring report.
type JobSpec struct {
	Name               string   `json:"name"`
	Expression         string   `json:"expression"`
	LookbackHours      int      `json:"hours_to_look_back"`
	ReportOnLevels     []Level  `json:"report_on_levels"`
	SuppressOnStatuses []Status `json:"report_on_does_not_have_status"`
}

// Config is the process-wide triage taxonomy. It is immutable after Parse.
type Config struct {
	levels         []Level
	statuses       []Status
	levelMarker    map[Level]string
	statusMarker   map[Status]string
	statusReaction map[Status]string
	jobs           []JobSpec
}

type fileMarker struct {
	Tag    string `yaml:"tag"`
	Marker string `yaml:"marker"`
}

type fileJob struct {
	Name               string   `yaml:"name"`
	Expression         string   `yaml:"expression"`
	LookbackHours      int      `yaml:"hours_to_look_back"`
	ReportOnLevels     []string `yaml:"report_on_levels"`
	SuppressOnStatuses []string `yaml:"report_on_does_not_have_status"`
}

type file struct {
	Levels        []fileMarker `yaml:"levels"`
	Statuses      []fileMarker `yaml:"statuses"`
	ScheduledJobs []fileJob    `yaml:"scheduled_jobs"`
}

// Default returns the embedded taxonomy.
func Default() (*Config, error) {
	return Parse(defaultYAML)
}

// Load reads a taxonomy file. An empty path loads the embedded default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML taxonomy document.
func Parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}

	c := &Config{
		levelMarker:    make(map[Level]string, len(f.Levels)),
		statusMarker:   make(map[Status]string, len(f.Statuses)),
		statusReaction: make(map[Status]string, len(f.Statuses)),
	}

	var errs []error
	if len(f.Levels) == 0 {
		errs = append(errs, errors.New("at least one level is required"))
	}

	seenMarker := make(map[string]string)
	for i, m := range f.Levels {
		if err := checkMarker("level", i, m, seenMarker); err != nil {
			errs = append(errs, err)
			continue
		}
		l := Level(m.Tag)
		if _, dup := c.levelMarker[l]; dup {
			errs = append(errs, fmt.Errorf("level %q defined twice", m.Tag))
			continue
		}
		c.levels = append(c.levels, l)
		c.levelMarker[l] = m.Marker
	}

	seenMarker = make(map[string]string)
	for i, m := range f.Statuses {
		if err := checkMarker("status", i, m, seenMarker); err != nil {
			errs = append(errs, err)
			continue
		}
		s := Status(m.Tag)
		if _, dup := c.statusMarker[s]; dup {
			errs = append(errs, fmt.Errorf("status %q defined twice", m.Tag))
			continue
		}
		c.statuses = append(c.statuses, s)
		c.statusMarker[s] = m.Marker
		c.statusReaction[s] = ReactionMarker(m.Marker)
	}

	for i, fj := range f.ScheduledJobs {
		job, err := c.resolveJob(i, fj)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.jobs = append(c.jobs, job)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid taxonomy: %w", errors.Join(errs...))
	}
	return c, nil
}

func checkMarker(kind string, i int, m fileMarker, seen map[string]string) error {
	if strings.TrimSpace(m.Tag) == "" {
		return fmt.Errorf("%s #%d: tag is required", kind, i)
	}
	if strings.TrimSpace(m.Marker) == "" {
		return fmt.Errorf("%s %q: marker is required", kind, m.Tag)
	}
	if other, dup := seen[m.Marker]; dup {
		return fmt.Errorf("%s %q: marker %q already used by %q", kind, m.Tag, m.Marker, other)
	}
	seen[m.Marker] = m.Tag
	return nil
}

func (c *Config) resolveJob(i int, fj fileJob) (JobSpec, error) {
	name := fj.Name
	if name == "" {
		name = fmt.Sprintf("job-%d", i)
	}
	job := JobSpec{
		Name:          name,
		Expression:    fj.Expression,
		LookbackHours: fj.LookbackHours,
	}

	if _, err := cron.ParseStandard(fj.Expression); err != nil {
		return JobSpec{}, fmt.Errorf("job %q: invalid expression %q: %w", name, fj.Expression, err)
	}
	if fj.LookbackHours <= 0 {
		return JobSpec{}, fmt.Errorf("job %q: hours_to_look_back must be positive, got %d", name, fj.LookbackHours)
	}
	if len(fj.ReportOnLevels) == 0 {
		return JobSpec{}, fmt.Errorf("job %q: report_on_levels must not be empty", name)
	}
	for _, tag := range fj.ReportOnLevels {
		if _, ok := c.levelMarker[Level(tag)]; !ok {
			return JobSpec{}, fmt.Errorf("job %q: unknown level %q", name, tag)
		}
		job.ReportOnLevels = append(job.ReportOnLevels, Level(tag))
	}
	for _, tag := range fj.SuppressOnStatuses {
		if _, ok := c.statusMarker[Status(tag)]; !ok {
			return JobSpec{}, fmt.Errorf("job %q: unknown status %q", name, tag)
		}
		job.SuppressOnStatuses = append(job.SuppressOnStatuses, Status(tag))
	}
	return job, nil
}

// ReactionMarker returns marker in the ":name:" form reactions are normalized to.
func ReactionMarker(marker string) string {
	if len(marker) >= 2 && strings.HasPrefix(marker, ":") && strings.HasSuffix(marker, ":") {
		return marker
	}
	return ":" + marker + ":"
}

// Levels returns the configured levels in order.
func (c *Config) Levels() []Level {
	return append([]Level(nil), c.levels...)
}

// Statuses returns the configured statuses in order.
func (c *Config) Statuses() []Status {
	return append([]Status(nil), c.statuses...)
}

// Jobs returns the configured scheduled jobs.
func (c *Config) Jobs() []JobSpec {
	return append([]JobSpec(nil), c.jobs...)
}

// LevelMarker returns the marker configured for l.
func (c *Config) LevelMarker(l Level) string {
	return c.levelMarker[l]
}

// StatusMarker returns the marker configured for s.
func (c *Config) StatusMarker(s Status) string {
	return c.statusMarker[s]
}

// LevelMarkers maps levels to their markers, preserving order.
func (c *Config) LevelMarkers(levels []Level) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, c.levelMarker[l])
	}
	return out
}

// StatusMarkers maps statuses to their markers, preserving order.
func (c *Config) StatusMarkers(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, c.statusMarker[s])
	}
	return out
}
