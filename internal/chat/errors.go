package chat

import (
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

// Failure classes surfaced by Send. The orchestrator picks its recovery
// path by errors.Is against these.
var (
	ErrAuth          = errors.New("chat: authentication failed")
	ErrRateLimited   = errors.New("chat: rate limited")
	ErrSafetyBlocked = errors.New("chat: response blocked by safety filter")
	ErrTransport     = errors.New("chat: transport error")
	ErrUnavailable   = errors.New("chat: no session")
)

// classify maps an openai-go error to the failure taxonomy. Errors already
// carrying a class pass through unchanged.
func classify(err error) error {
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrSafetyBlocked) || errors.Is(err, ErrTransport) {
		return err
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
