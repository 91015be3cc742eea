package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-legal-forms/internal/document/docxtest"
	ferrors "github.com/a3tai/mcp-legal-forms/internal/errors"
)

func fragment(text string) Fragment {
	return Fragment{Index: 0, Text: text, Source: SourceParagraph}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  ► Next step  ", "-> Next step"},
		{"• item", "* item"},
		{"2019–2020 — final", "2019-2020 -- final"},
		{"‘quoted’ and “double”", `'quoted' and "double"`},
		{"plain ñ text", "plain ñ text"},
		{"\t\n", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestCheckboxMatcher(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		labels  []string
		checked []bool
	}{
		{
			name:    "label bounded by next checkbox",
			text:    "Petitioner [ ] Respondent [X]",
			labels:  []string{"Respondent", "Respondent"},
			checked: []bool{false, true},
		},
		{
			name:    "first phrase after match",
			text:    "[ ] Married, filing jointly",
			labels:  []string{"Married"},
			checked: []bool{false},
		},
		{
			name:    "falls back to preceding phrase",
			text:    "Minor children involved: yes []",
			labels:  []string{"yes"},
			checked: []bool{false},
		},
		{
			name:    "unlabeled",
			text:    "[ ]",
			labels:  []string{UnlabeledCheckbox},
			checked: []bool{false},
		},
		{
			name:    "marks",
			text:    "[✓] Agree [ * ] Other",
			labels:  []string{"Agree", "Other"},
			checked: []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckboxMatcher.Match(fragment(tt.text), DefaultOptions())
			require.NoError(t, err)
			require.Len(t, got, len(tt.labels))
			for i, c := range got {
				assert.Equal(t, KindCheckbox, c.Kind)
				assert.Equal(t, tt.labels[i], c.Label)
				assert.NotEmpty(t, c.Label)
				assert.Equal(t, tt.checked[i], c.Checked)
				assert.Equal(t, tt.text, c.SourceText)
			}
		})
	}
}

func TestCheckboxMatcher_UnlabeledFlag(t *testing.T) {
	got, err := CheckboxMatcher.Match(fragment("[ ]."), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, UnlabeledCheckbox, got[0].Label)
	assert.True(t, got[0].Unlabeled)
}

func TestBlankMatcher(t *testing.T) {
	got, err := BlankMatcher.Match(fragment("Case Number: _____"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindUnderscoreBlank, got[0].Kind)
	assert.Equal(t, "Case Number", got[0].Label)
	assert.Equal(t, 5, got[0].Length)
	assert.Equal(t, 13, got[0].Start)
	assert.Equal(t, 18, got[0].End)
}

func TestBlankMatcher_Labels(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		labels  []string
		lengths []int
	}{
		{"last three words", "Name of the minor child: ________", []string{"the minor child"}, []int{8}},
		{"label between runs", "Signed ____ Date: ___", []string{"Signed", "Date"}, []int{4, 3}},
		{"short runs ignored", "a__b ___", []string{"a__b"}, []int{3}},
		{"no label", "________ ", []string{UnlabeledField}, []int{8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BlankMatcher.Match(fragment(tt.text), DefaultOptions())
			require.NoError(t, err)

			var primary []FieldCandidate
			for _, c := range got {
				if c.Pattern == BlankMatcher.Name() {
					primary = append(primary, c)
				}
			}
			require.Len(t, primary, len(tt.labels))
			for i, c := range primary {
				assert.Equal(t, tt.labels[i], c.Label)
				assert.Equal(t, tt.lengths[i], c.Length)
				assert.GreaterOrEqual(t, c.Length, 3)
			}
		})
	}
}

func TestBlankMatcher_SecondaryMarker(t *testing.T) {
	got, err := BlankMatcher.Match(fragment("Address: ______"), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Start, got[1].Start)
	assert.Equal(t, got[0].End, got[1].End)
	assert.Equal(t, "blank_marker", got[1].Pattern)

	opts := DefaultOptions()
	opts.MinBlankRun = 8
	got, err = BlankMatcher.Match(fragment("Address: ______"), opts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "blank_marker", got[0].Pattern)
	assert.Equal(t, "Address", got[0].Label)
	assert.Equal(t, 6, got[0].Length)
}

func TestLabeledMatcher(t *testing.T) {
	tests := []struct {
		text     string
		kinds    []FieldKind
		labels   []string
		patterns []string
	}{
		{"Email:", []FieldKind{KindLabeledColon}, []string{"Email"}, []string{"colon_end"}},
		{"Case Number: _____", []FieldKind{KindLabeledColon}, []string{"Case Number"}, []string{"colon_blank"}},
		{"Enter your full name", []FieldKind{KindOtherPattern}, []string{"your full name"}, []string{"enter_imperative"}},
		{"Phone (required)", []FieldKind{KindOtherPattern}, []string{"Phone"}, []string{"required_marker"}},
		{"No fields here.", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := LabeledMatcher.Match(fragment(tt.text), DefaultOptions())
			require.NoError(t, err)
			require.Len(t, got, len(tt.kinds))
			for i, c := range got {
				assert.Equal(t, tt.kinds[i], c.Kind)
				assert.Equal(t, tt.labels[i], c.Label)
				assert.Equal(t, tt.patterns[i], c.Pattern)
			}
		})
	}
}

func TestMatcher_InvalidUTF8(t *testing.T) {
	for _, m := range TextMatchers() {
		_, err := m.Match(Fragment{Index: 4, Text: "bad \xff [ ]"}, DefaultOptions())
		require.Error(t, err, m.Name())
		assert.True(t, ferrors.IsType(err, ferrors.ErrorTypeMalformedFragment))
	}
}

func TestMatchTable(t *testing.T) {
	doc := readDoc(t, docxtest.New().Table(
		[]string{"Name:", ""},
		[]string{"Address", "____"},
		[]string{"", ""},
		[]string{"Fixed", "Text"},
	))
	table := doc.Tables()[0]

	got := MatchTable(table, DefaultOptions())
	require.Len(t, got, 4)

	assert.Equal(t, "Name:", got[0].Label)
	assert.Equal(t, KindTableCell, got[0].Kind)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, 1, got[0].Column)
	assert.Equal(t, "Name:", got[0].Context)

	assert.Equal(t, "Address", got[1].Label)
	assert.Equal(t, 4, got[1].Length)

	assert.Equal(t, "Address ____", got[2].Label)
	assert.Equal(t, "Address ____", got[2].Context)
	assert.Equal(t, "Address ____", got[3].Label)
	assert.Equal(t, 2, got[3].Row)
}

func TestMatchTable_FirstRowWithoutLabel(t *testing.T) {
	doc := readDoc(t, docxtest.New().Table([]string{"", "___"}))
	table := doc.Tables()[0]
	got := MatchTable(table, DefaultOptions())
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, UnlabeledField, c.Label)
		assert.True(t, c.Unlabeled)
	}
}
