package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model file name constants.
const (
	// Attribute estimation models.
	AttributeAge    = "age.onnx"
	AttributeGender = "gender.onnx"
	AttributeRace   = "race.onnx"

	// Face detection cascades.
	CascadePigo      = "facefinder"
	CascadeHaarFront = "haarcascade_frontalface_default.xml"
)

// Model type categories for the directory layout under the models directory.
const (
	TypeAttributes = "attributes"
	TypeCascades   = "cascades"
)

// DefaultModelsDir is the models directory used when nothing else is configured.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models directory.
const EnvModelsDir = "FACESCAN_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// ModelInfo contains metadata about a model file.
type ModelInfo struct {
	Name        string
	Type        string
	Description string
	Filename    string
}

// GetModelsDir returns the models directory path from various sources.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable, 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves a model filename to its full path. The organised
// layout (<dir>/<type>/<file>) is preferred; a flat <dir>/<file> is used when
// only that exists.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	organized := filepath.Join(baseDir, modelType, filename)
	if _, err := os.Stat(organized); err == nil {
		return organized
	}

	flat := filepath.Join(baseDir, filename)
	if _, err := os.Stat(flat); err == nil {
		return flat
	}

	return organized
}

// GetAttributeModelPath returns the path of an attribute model file.
func GetAttributeModelPath(modelsDir, filename string) string {
	return ResolveModelPath(modelsDir, TypeAttributes, filename)
}

// GetCascadePath returns the path of a face detection cascade file.
func GetCascadePath(modelsDir, filename string) string {
	return ResolveModelPath(modelsDir, TypeCascades, filename)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}

// ListAvailableModels returns information about the model files facescan knows.
func ListAvailableModels() []ModelInfo {
	return []ModelInfo{
		{Name: "age", Type: TypeAttributes, Description: "Apparent age regressor", Filename: AttributeAge},
		{Name: "gender", Type: TypeAttributes, Description: "Gender classifier", Filename: AttributeGender},
		{Name: "race", Type: TypeAttributes, Description: "Race classifier", Filename: AttributeRace},
		{Name: "pigo", Type: TypeCascades, Description: "pigo face finder cascade", Filename: CascadePigo},
		{Name: "haar-frontalface", Type: TypeCascades, Description: "OpenCV Haar frontal face cascade", Filename: CascadeHaarFront},
	}
}
