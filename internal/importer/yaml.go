package importer

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/place-dedup/internal/model"
)

// ReadYAML reads places from a YAML sequence of records or a mapping with a
// "places" sequence.
func ReadYAML(r io.Reader) ([]model.Place, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "importer: decode yaml")
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	var records []placeRecord
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&records); err != nil {
			return nil, eris.Wrap(err, "importer: decode yaml records")
		}
	case yaml.MappingNode:
		var wrapped struct {
			Places []placeRecord `yaml:"places"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return nil, eris.Wrap(err, "importer: decode yaml records")
		}
		records = wrapped.Places
	default:
		return nil, eris.New("importer: yaml document must be a list of places or a mapping with a places key")
	}

	return recordsToPlaces(records), nil
}
