package scoring

import "errors"

// ErrUnknownFramework is returned by EngineFor when asked for a scoring
// framework with no registered engine (spec.md §4.6: "a registry resolves
// framework identifier → engine; unknown framework is a ValidationError").
var ErrUnknownFramework = errors.New("scoring: unknown framework")
