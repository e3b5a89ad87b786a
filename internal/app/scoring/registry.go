package scoring

import "github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/domain"

// EngineFor resolves a scoring framework identifier to its engine (spec.md
// §4.6: "a registry resolves framework identifier → engine; unknown
// framework is a ValidationError").
func EngineFor(framework domain.ScoringFramework) (Engine, error) {
	switch framework {
	case domain.FrameworkRICE:
		return RICEEngine{}, nil
	case domain.FrameworkWSJF:
		return WSJFEngine{}, nil
	case domain.FrameworkMathModel:
		return MathModelEngine{}, nil
	default:
		return nil, ErrUnknownFramework
	}
}
