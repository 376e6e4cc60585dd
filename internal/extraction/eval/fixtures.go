package eval

import (
	"embed"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

//go:embed fixtures/*.txt fixtures/*.json
var fixtureFS embed.FS

// Fixture bundles receipt text with its ground truth.
type Fixture struct {
	Name        string
	Text        string
	Lines       []string
	GroundTruth *GroundTruth
}

var fixtureNames = []string{
	"superstore_receipt",
	"walmart_receipt",
}

// LoadFixtures loads all embedded fixture pairs (txt + json).
func LoadFixtures() ([]*Fixture, error) {
	var fixtures []*Fixture
	for _, name := range fixtureNames {
		f, err := loadFixture(name)
		if err != nil {
			return nil, eris.Wrapf(err, "load fixture %q", name)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func loadFixture(name string) (*Fixture, error) {
	textBytes, err := fixtureFS.ReadFile("fixtures/" + name + ".txt")
	if err != nil {
		return nil, eris.Wrap(err, "read text")
	}
	jsonBytes, err := fixtureFS.ReadFile("fixtures/" + name + ".json")
	if err != nil {
		return nil, eris.Wrap(err, "read ground truth")
	}

	var gt GroundTruth
	if err := json.Unmarshal(jsonBytes, &gt); err != nil {
		return nil, eris.Wrap(err, "parse ground truth")
	}

	text := string(textBytes)
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	return &Fixture{
		Name:        name,
		Text:        text,
		Lines:       lines,
		GroundTruth: &gt,
	}, nil
}
