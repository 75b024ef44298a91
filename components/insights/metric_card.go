package insights

import "github.com/ettle/strcase"

// MetricCard is a stateless labeled value with an optional trend indicator.
type MetricCard struct {
	Label    string
	Value    string
	Change   string
	Positive bool
	Icon     string
}

// MetricCardOption customizes a card.
type MetricCardOption func(*MetricCard)

// WithChange attaches a trend indicator and its polarity.
func WithChange(change string, positive bool) MetricCardOption {
	return func(c *MetricCard) {
		c.Change = change
		c.Positive = positive
	}
}

// WithIcon sets the icon name rendered next to the value.
func WithIcon(icon string) MetricCardOption {
	return func(c *MetricCard) {
		c.Icon = icon
	}
}

// NewMetricCard builds a card; value may be a pre-formatted string or a number.
func NewMetricCard(label string, value any, opts ...MetricCardOption) MetricCard {
	card := MetricCard{
		Label:    label,
		Value:    formatValue(value),
		Positive: true,
	}
	for _, opt := range opts {
		opt(&card)
	}
	return card
}

// ID returns a DOM-friendly slug of the label.
func (c MetricCard) ID() string {
	return strcase.ToKebab(c.Label)
}

// HasChange reports whether a trend indicator should be shown.
func (c MetricCard) HasChange() bool {
	return c.Change != ""
}

// Arrow is the glyph matching the polarity.
func (c MetricCard) Arrow() string {
	if c.Positive {
		return "↑"
	}
	return "↓"
}
