package sink

import (
	"errors"

	"solar-monitor/internal/entity"
)

// Multi fans every published state out to all wrapped sinks. A failure in
// one sink does not stop delivery to the others.
type Multi []entity.Sink

func (m Multi) Publish(st entity.State) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
