package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Registry error codes with a fixed meaning across endpoints.
const (
	CodeMissingX        = "76"
	CodeMissingY        = "77"
	CodeOutOfTerritory  = "78"
	SRSWGS84            = "EPSG:4326"
	maxRegistryMessages = 3
)

var codeMessages = map[string]string{
	CodeMissingX:       "the X coordinate (longitude) is missing",
	CodeMissingY:       "the Y coordinate (latitude) is missing",
	CodeOutOfTerritory: "the coordinates fall outside the territory covered by the registry",
}

// DescribeCode returns the readable message for a registry error code,
// falling back to the registry's own description.
func DescribeCode(code, description string) string {
	if msg, ok := codeMessages[strings.TrimSpace(code)]; ok {
		return msg
	}
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return "registry error " + code
}

// RegistryError is one entry of the registry's error list.
type RegistryError struct {
	Code        FlexString `json:"cod"`
	Description string     `json:"des"`
}

// FromRegistryErrors folds the registry's error list into one not_found
// tier error. Returns nil for an empty list.
func FromRegistryErrors(tier string, errs []RegistryError) *ProviderError {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, min(len(errs), maxRegistryMessages))
	for i, e := range errs {
		if i == maxRegistryMessages {
			break
		}
		msgs = append(msgs, DescribeCode(string(e.Code), e.Description))
	}
	return NewProviderError(ErrorNotFound, tier, strings.Join(msgs, "; "), nil)
}

// FlexString decodes a JSON string or number into a string. The registry
// is not consistent about quoting codes and distances.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

// Float parses the value as a decimal number, accepting a comma separator.
func (f FlexString) Float() (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(string(f)), ",", "."), 64)
}

// List decodes either a JSON array or a single object into a slice. The
// registry collapses one-element lists into bare objects.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		*l = List[T]{item}
		return nil
	}
}

// ParcelRef is the registry's split cadastral reference.
type ParcelRef struct {
	PC1 string `json:"pc1"`
	PC2 string `json:"pc2"`
	Car string `json:"car,omitempty"`
	CC1 string `json:"cc1,omitempty"`
	CC2 string `json:"cc2,omitempty"`
}

// String joins the parts present: 14 characters for a parcel, 20 for a
// property unit.
func (p ParcelRef) String() string {
	return strings.TrimSpace(p.PC1) + strings.TrimSpace(p.PC2) +
		strings.TrimSpace(p.Car) + strings.TrimSpace(p.CC1) + strings.TrimSpace(p.CC2)
}
