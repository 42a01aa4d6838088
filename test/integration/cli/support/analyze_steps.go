package support

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/facescan/internal/testutil"
	"github.com/MeKo-Tech/facescan/internal/utils"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// aFolderContaining creates dir with the comma-separated files. Image names
// get a synthetic face, anything else gets plain text.
func (testCtx *TestContext) aFolderContaining(dir, files string) error {
	root := testCtx.path(dir)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	testCtx.TrackDirectory(root)

	for _, name := range strings.Split(files, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return err
		}
		if utils.IsSupportedImage(name) {
			img := testutil.CreateFaceImage(testutil.MediumSize.Width, testutil.MediumSize.Height)
			if err := imaging.Save(img, path); err != nil {
				return fmt.Errorf("failed to save %s: %w", name, err)
			}
			continue
		}
		if err := os.WriteFile(path, []byte("not an image\n"), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// aCorruptImage writes bytes that carry an image extension but do not decode.
func (testCtx *TestContext) aCorruptImage(path string) error {
	full := testCtx.path(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return err
	}
	return os.WriteFile(full, []byte("definitely not a png"), 0o600)
}

// anEmptyDirectory creates dir.
func (testCtx *TestContext) anEmptyDirectory(dir string) error {
	testCtx.TrackDirectory(dir)
	return os.MkdirAll(testCtx.path(dir), 0o750)
}

func (testCtx *TestContext) readCSV(name string) ([][]string, error) {
	f, err := os.Open(testCtx.path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	return csv.NewReader(f).ReadAll()
}

// theCSVShouldHaveRows checks the header and the number of data rows.
func (testCtx *TestContext) theCSVShouldHaveRows(name string, rows int) error {
	records, err := testCtx.readCSV(name)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s is empty", name)
	}
	if got := strings.Join(records[0], ","); got != "filename,age,gender,race" {
		return fmt.Errorf("unexpected header %q", got)
	}
	if got := len(records) - 1; got != rows {
		return fmt.Errorf("expected %d data rows in %s, got %d", rows, name, got)
	}
	return nil
}

// theCSVShouldContainRow checks for an exact comma-joined row.
func (testCtx *TestContext) theCSVShouldContainRow(name, row string) error {
	records, err := testCtx.readCSV(name)
	if err != nil {
		return err
	}
	want := strings.Split(row, ",")
	for _, rec := range records[1:] {
		if slices.Equal(rec, want) {
			return nil
		}
	}
	return fmt.Errorf("row %q not found in %s: %v", row, name, records)
}

// theFileShouldExist checks that path exists.
func (testCtx *TestContext) theFileShouldExist(path string) error {
	if !testutil.FileExists(testCtx.path(path)) {
		return fmt.Errorf("expected file %s to exist", path)
	}
	return nil
}

// theFileShouldNotExist checks that path does not exist.
func (testCtx *TestContext) theFileShouldNotExist(path string) error {
	if testutil.FileExists(testCtx.path(path)) {
		return fmt.Errorf("expected file %s not to exist", path)
	}
	return nil
}

// theFilesShouldBeIdentical compares two output files byte for byte.
func (testCtx *TestContext) theFilesShouldBeIdentical(a, b string) error {
	da, err := os.ReadFile(testCtx.path(a))
	if err != nil {
		return err
	}
	db, err := os.ReadFile(testCtx.path(b))
	if err != nil {
		return err
	}
	if string(da) != string(db) {
		return fmt.Errorf("%s and %s differ:\n%s\n---\n%s", a, b, da, db)
	}
	return nil
}

// RegisterAnalyzeSteps registers image folder and result steps.
func (testCtx *TestContext) RegisterAnalyzeSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a folder "([^"]*)" containing "([^"]*)"$`, testCtx.aFolderContaining)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^an empty directory "([^"]*)"$`, testCtx.anEmptyDirectory)
	sc.Step(`^the CSV "([^"]*)" should have (\d+) data rows?$`, testCtx.theCSVShouldHaveRows)
	sc.Step(`^the CSV "([^"]*)" should contain the row "([^"]*)"$`, testCtx.theCSVShouldContainRow)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the files "([^"]*)" and "([^"]*)" should be identical$`, testCtx.theFilesShouldBeIdentical)
}
