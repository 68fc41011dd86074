package report

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
)

var (
	fencedBody    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	adjacentObj   = regexp.MustCompile(`}\s*{`)
	adjacentArr   = regexp.MustCompile(`]\s*\[`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

var errNotAnObject = errors.New("response is not a JSON object")

// CleanResponse strips a Markdown code fence around the model output, if there is one.
func CleanResponse(s string) string {
	if m := fencedBody.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// RepairJSON fixes the mistakes models most often make in long JSON documents: prose around the
// object, trailing commas, missing commas between adjacent objects or arrays, and bare keys.
func RepairJSON(s string) string {
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	s = trailingComma.ReplaceAllString(s, "$1")
	s = adjacentObj.ReplaceAllString(s, "},{")
	s = adjacentArr.ReplaceAllString(s, "],[")
	s = bareKey.ReplaceAllString(s, `$1"$2":`)
	return s
}

// ParseResponse cleans a model response and decodes it as a JSON object, repairing it once if
// the first attempt fails.
func ParseResponse(raw string) (models.RawReport, error) {
	cleaned := CleanResponse(raw)
	report, err := decodeObject(cleaned)
	if err == nil {
		return report, nil
	}
	repaired, repairErr := decodeObject(RepairJSON(cleaned))
	if repairErr != nil {
		return nil, err
	}
	return repaired, nil
}

func decodeObject(s string) (models.RawReport, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	return models.RawReport(obj), nil
}
