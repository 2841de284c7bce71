package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("sync")
		IncSyncRun()
		IncListingResult("success")
		AddItemOps("inserted", 3)
		AddItemOps("updated", 0)
		IncFeedFetchError()
	})
}
