package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// FrequencySeed — описание частоты в seed-файле.
//
//	frequencies:
//	  - name: Monthly
//	    slug: monthly
//	    recurrence: FREQ=MONTHLY;BYMONTHDAY=1
//	    window_start: 7
//	    window_end: 7
//
// Отсутствующий window_start означает классический режим.
type FrequencySeed struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Recurrence  string `yaml:"recurrence"`
	WindowStart *int   `yaml:"window_start"`
	WindowEnd   int    `yaml:"window_end"`
}

type seedFile struct {
	Frequencies []FrequencySeed `yaml:"frequencies"`
}

// LoadFrequencySeeds читает seed-файл частот.
func LoadFrequencySeeds(path string) ([]FrequencySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frequencies file: %w", err)
	}
	seeds, err := ParseFrequencySeeds(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seeds, nil
}

// ParseFrequencySeeds разбирает YAML со строгой проверкой полей.
// Рекуррентность здесь не проверяется, это делает FrequencyService.
func ParseFrequencySeeds(data []byte) ([]FrequencySeed, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	seen := make(map[string]bool, len(f.Frequencies))
	for i, s := range f.Frequencies {
		slug := strings.TrimSpace(s.Slug)
		if slug == "" {
			return nil, fmt.Errorf("frequencies[%d]: slug is required", i)
		}
		if seen[slug] {
			return nil, fmt.Errorf("frequencies[%d]: duplicate slug %q", i, slug)
		}
		seen[slug] = true
		f.Frequencies[i].Slug = slug

		if strings.TrimSpace(s.Name) == "" {
			f.Frequencies[i].Name = slug
		}
	}

	return f.Frequencies, nil
}
