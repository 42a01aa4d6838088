package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/facescan/internal/attributes"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// CSVHeader is the fixed first row of CSV output.
var CSVHeader = []string{"filename", "age", "gender", "race"}

// FormatResults renders the table in the requested format.
func FormatResults(t *Table, format string) (string, error) {
	switch format {
	case FormatCSV, "":
		return formatCSV(t)
	case FormatJSON:
		return formatJSON(t)
	case FormatYAML:
		return formatYAML(t)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// formatCSV writes one row per record with arg-max labels and sentinels.
func formatCSV(t *Table) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(CSVHeader); err != nil {
		return "", err
	}
	for _, rec := range t.Records() {
		row := []string{rec.FileName(), rec.AgeString(), rec.GenderLabel(), rec.RaceLabel()}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return output.String(), nil
}

type attributeDoc struct {
	Label  string                  `json:"label" yaml:"label"`
	Scores attributes.Distribution `json:"scores,omitempty" yaml:"scores,omitempty"`
}

type imageDoc struct {
	File      string            `json:"file" yaml:"file"`
	Path      string            `json:"path" yaml:"path"`
	Age       *float64          `json:"age" yaml:"age"`
	AgeLabel  string            `json:"age_label" yaml:"age_label"`
	Gender    attributeDoc      `json:"gender" yaml:"gender"`
	Race      attributeDoc      `json:"race" yaml:"race"`
	Faces     int               `json:"faces,omitempty" yaml:"faces,omitempty"`
	Annotated []string          `json:"annotated,omitempty" yaml:"annotated,omitempty"`
	Errors    map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type resultsDoc struct {
	Images []imageDoc `json:"images" yaml:"images"`
}

func buildDoc(t *Table) resultsDoc {
	doc := resultsDoc{Images: make([]imageDoc, 0, t.Len())}
	for _, rec := range t.Records() {
		d := imageDoc{
			File:      rec.FileName(),
			Path:      rec.Path,
			AgeLabel:  rec.AgeString(),
			Gender:    attributeDoc{Label: rec.GenderLabel()},
			Race:      attributeDoc{Label: rec.RaceLabel()},
			Faces:     rec.Faces,
			Annotated: rec.AnnotatedFiles,
		}
		if rec.AgeAvailable() {
			age := rec.Age
			d.Age = &age
		}
		if rec.GenderErr == nil {
			d.Gender.Scores = rec.Gender
		}
		if rec.RaceErr == nil {
			d.Race.Scores = rec.Race
		}

		errs := map[string]string{}
		for attr, err := range map[attributes.Attribute]error{
			attributes.Age: rec.AgeErr, attributes.Gender: rec.GenderErr, attributes.Race: rec.RaceErr,
		} {
			if err != nil {
				errs[string(attr)] = err.Error()
			}
		}
		if rec.AnnotateErr != nil {
			errs["annotate"] = rec.AnnotateErr.Error()
		}
		if len(errs) > 0 {
			d.Errors = errs
		}
		doc.Images = append(doc.Images, d)
	}
	return doc
}

func formatJSON(t *Table) (string, error) {
	bts, err := json.MarshalIndent(buildDoc(t), "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatYAML(t *Table) (string, error) {
	bts, err := yaml.Marshal(buildDoc(t))
	if err != nil {
		return "", err
	}
	return string(bts), nil
}
