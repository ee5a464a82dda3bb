package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// phaseSpec is one named traffic phase after defaults were applied.
type phaseSpec struct {
	name    string
	method  string
	target  string
	body    *string
	headers *headersList
	runtime *uint64
}

type phaseEntry struct {
	Name           string   `yaml:"name"`
	Method         string   `yaml:"method"`
	Target         string   `yaml:"target"`
	Body           *string  `yaml:"body"`
	Headers        []string `yaml:"headers"`
	RuntimeSeconds *uint64  `yaml:"runtime_seconds"`
}

type phasesFile struct {
	Phases []phaseEntry `yaml:"phases"`
}

// loadPhases fills c.phases. Without a phases file a single phase named
// after the run replays the command line request.
func (c *config) loadPhases() error {
	if c.phasesPath == "" {
		c.phases = []phaseSpec{{
			name:    c.name,
			method:  c.method,
			target:  c.target,
			body:    c.body,
			headers: c.headers,
		}}
		return nil
	}
	data, err := os.ReadFile(c.phasesPath)
	if err != nil {
		return err
	}
	var f phasesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%s: %w", c.phasesPath, err)
	}
	if len(f.Phases) == 0 {
		return errEmptyPhases
	}
	c.phases = make([]phaseSpec, 0, len(f.Phases))
	for _, e := range f.Phases {
		p, err := c.phaseFrom(e)
		if err != nil {
			return fmt.Errorf("phase %q: %w", e.Name, err)
		}
		c.phases = append(c.phases, p)
	}
	return nil
}

func (c *config) phaseFrom(e phaseEntry) (phaseSpec, error) {
	if e.Name == "" {
		return phaseSpec{}, errPhaseName
	}
	p := phaseSpec{
		name:    e.Name,
		method:  c.method,
		target:  c.target,
		body:    c.body,
		headers: c.headers,
		runtime: e.RuntimeSeconds,
	}
	if e.Method != "" {
		p.method = e.Method
	}
	if e.Target != "" {
		p.target = e.Target
	}
	if e.Body != nil {
		p.body = e.Body
	}
	if len(e.Headers) > 0 {
		hl := new(headersList)
		if c.headers != nil {
			*hl = append(*hl, *c.headers...)
		}
		for _, h := range e.Headers {
			if err := hl.Set(h); err != nil {
				return phaseSpec{}, err
			}
		}
		p.headers = hl
	}
	if err := checkTarget(p.target); err != nil {
		return phaseSpec{}, err
	}
	if p.runtime != nil && *p.runtime < 1 {
		return phaseSpec{}, errInvalidRuntime
	}
	return p, checkMethodAndBody(p.method, p.body)
}
