package analytics

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-insights/components/insights"
)

//go:embed fixtures/mock.yaml
var defaultFixture []byte

// MockClient serves a fixed AnalysisResult in which only the handle varies.
// It never performs network I/O.
type MockClient struct {
	fixture insights.AnalysisResult
}

// NewMockClient builds a mock client from the embedded fixture.
func NewMockClient() *MockClient {
	client, err := NewMockClientFromReader(bytes.NewReader(defaultFixture))
	if err != nil {
		// The fixture is embedded at build time.
		panic(fmt.Errorf("analytics: decode embedded fixture: %w", err))
	}
	return client
}

// NewMockClientFromFile builds a mock client from a YAML fixture on disk.
func NewMockClientFromFile(path string) (*MockClient, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("analytics: open fixture %s: %w", path, err)
	}
	defer f.Close()
	return NewMockClientFromReader(f)
}

// NewMockClientFromReader decodes a YAML fixture.
func NewMockClientFromReader(r io.Reader) (*MockClient, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var fixture insights.AnalysisResult
	if err := decoder.Decode(&fixture); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("analytics: fixture is empty")
		}
		return nil, fmt.Errorf("analytics: parse fixture: %w", err)
	}
	return &MockClient{fixture: fixture}, nil
}

// FetchAnalytics echoes the handle into the fixture profile.
func (c *MockClient) FetchAnalytics(_ context.Context, handle string) (insights.AnalysisResult, error) {
	result := c.fixture.Clone()
	result.Profile.Username = handle
	result.Profile.ProfilePicURL = fmt.Sprintf("https://picsum.photos/seed/%s/200", url.PathEscape(handle))
	return result, nil
}
