package diagnosis

import "fmt"

// OracleUnavailableError reports that the oracle could not judge a question,
// either because the call failed or because its answer was unusable.
type OracleUnavailableError struct {
	Index int
	Err   error
}

func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("diagnosis oracle unavailable for question %d: %v", e.Index, e.Err)
}

func (e *OracleUnavailableError) Unwrap() error { return e.Err }
