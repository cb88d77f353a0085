package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

//go:embed arms.yaml
var defaultArmsYAML []byte

// Arm is the media shown for one variant.
type Arm struct {
	MediaID   string `yaml:"media_id"   json:"media_id"`
	ScriptSrc string `yaml:"script_src" json:"script_src"`
}

// Arms maps each variant to its media.
type Arms map[models.Variant]Arm

type armsFile struct {
	Arms map[string]Arm `yaml:"arms"`
}

// LoadArms reads the arm catalogue at path, or the built-in one if path is empty.
func LoadArms(path string) (Arms, error) {
	raw := defaultArmsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read arms config: %w", err)
		}
		raw = b
	}
	return ParseArms(raw)
}

// ParseArms decodes a YAML catalogue. Every assignable variant must have an
// arm with a media id and script source.
func ParseArms(raw []byte) (Arms, error) {
	var f armsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse arms config: %w", err)
	}

	arms := Arms{}
	for k, arm := range f.Arms {
		arms[models.Variant(k)] = arm
	}
	for _, v := range models.Variants() {
		arm, ok := arms[v]
		if !ok {
			return nil, fmt.Errorf("arms config: variant %s missing", v)
		}
		if arm.MediaID == "" || arm.ScriptSrc == "" {
			return nil, fmt.Errorf("arms config: variant %s needs media_id and script_src", v)
		}
	}
	return arms, nil
}
