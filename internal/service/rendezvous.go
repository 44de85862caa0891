package service

import (
	"fmt"

	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/rs/zerolog/log"
)

// runDetached runs fn on its own goroutine and waits for it.
//
// The result travels on a one-slot channel; completion travels on a separate
// join channel. A panic in fn is reported as domain.ErrTaskJoin, as is a task
// that completed without delivering a result.
func runDetached(fn func() error) error {
	result := make(chan error, 1)
	join := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("Detached task panicked")
				join <- fmt.Errorf("%w: %v", domain.ErrTaskJoin, r)
				return
			}
			join <- nil
		}()
		result <- fn()
	}()

	if err := <-join; err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	default:
		return domain.ErrTaskJoin
	}
}
