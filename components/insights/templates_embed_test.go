package insights

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplatesPresent(t *testing.T) {
	for _, name := range []string{
		"templates/page.html",
		"templates/partials/landing.html",
		"templates/partials/dashboard.html",
		"templates/partials/metric_card.html",
		"templates/partials/notification.html",
	} {
		data, err := fs.ReadFile(embeddedTemplates, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
}
