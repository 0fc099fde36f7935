package analysis

import "context"

// Analyzer port (interface ke remote analysis service)
type Analyzer interface {
	Analyze(ctx context.Context, message string) (*Result, error)
}
