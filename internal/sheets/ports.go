package sheets

import "context"

// Ports for outbound mirror adapters.
type (
	RecapWriter interface {
		WriteRecap(ctx context.Context, r Recap) error
	}

	// RecapReader returns the recap currently held by the mirror. An empty
	// Recap means nothing has been written yet.
	RecapReader interface {
		ReadRecap(ctx context.Context) (Recap, error)
	}

	Mirror interface {
		RecapWriter
		RecapReader
	}
)
