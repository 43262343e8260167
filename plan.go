package hostbench

import (
	"context"
	"io"
)

// Plan is a query plan read from CSV. It enumerates hosts in first seen
// order and resolves windows in file order.
type Plan struct {
	hosts   []WorkUnit
	windows map[string][]TimeWindow

	// ParseFailures counts the records that were skipped.
	ParseFailures int
}

// LoadPlan parses reader into a Plan. onError, when not nil, receives every
// skipped record's error.
func LoadPlan(reader io.Reader, onError func(error)) (*Plan, error) {
	p := &Plan{windows: map[string][]TimeWindow{}}

	err := ParseCsv(reader, func(err error, host string, window TimeWindow) {
		if err != nil {
			p.ParseFailures++

			if onError != nil {
				onError(err)
			}

			return
		}

		if _, ok := p.windows[host]; !ok {
			p.hosts = append(p.hosts, WorkUnit{Host: host})
		}

		p.windows[host] = append(p.windows[host], window)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Plan) Enumerate(ctx context.Context) ([]WorkUnit, error) {
	units := make([]WorkUnit, len(p.hosts))
	copy(units, p.hosts)

	return units, nil
}

func (p *Plan) Windows(ctx context.Context, u WorkUnit) ([]TimeWindow, error) {
	return p.windows[u.Host], nil
}
