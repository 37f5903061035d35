package yaml

import (
	"strings"
	"testing"
)

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/yaml")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()

	type Stage struct {
		Name    string   `yaml:"name"`
		Defines []string `yaml:"defines"`
	}
	original := []Stage{{Name: "vertex", Defines: []string{"SKINNED"}}, {Name: "fragment"}}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored []Stage
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if len(restored) != 2 || restored[0].Name != "vertex" || restored[0].Defines[0] != "SKINNED" {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestMarshal_Indent(t *testing.T) {
	c := New()

	data, err := c.Marshal(map[string]map[string]int{"outer": {"inner": 1}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	if !strings.Contains(string(data), "\n  inner: 1") {
		t.Errorf("Marshal() = %q, want two-space indent", data)
	}
}

func TestMarshalNil(t *testing.T) {
	c := New()

	data, err := c.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}

	// YAML represents nil as "null\n"
	if string(data) != "null\n" {
		t.Errorf("Marshal(nil) = %q, want %q", data, "null\n")
	}
}

func TestUnmarshal_EmptyInput(t *testing.T) {
	c := New()

	v := map[string]int{"kept": 1}
	if err := c.Unmarshal([]byte{}, &v); err != nil {
		t.Errorf("Unmarshal(empty) error: %v", err)
	}
	if v["kept"] != 1 {
		t.Error("Unmarshal(empty) should leave the value untouched")
	}
}

func TestUnmarshal_UnknownField(t *testing.T) {
	c := New()

	var v struct {
		Name string `yaml:"name"`
	}
	if err := c.Unmarshal([]byte("name: a\nextra: b"), &v); err == nil {
		t.Error("Unmarshal() should reject unknown fields")
	}
}

func TestUnmarshal_TypeMismatch(t *testing.T) {
	c := New()

	type TestStruct struct {
		Value int `yaml:"value"`
	}

	testCases := []struct {
		name  string
		input string
	}{
		{"string for int", "value: not_a_number"},
		{"array for int", "value:\n  - 1\n  - 2"},
		{"map for int", "value:\n  nested: true"},
		{"unclosed flow", "value: [1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var v TestStruct
			if err := c.Unmarshal([]byte(tc.input), &v); err == nil {
				t.Errorf("Unmarshal(%q) should return error", tc.input)
			}
		})
	}
}
